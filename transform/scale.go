package transform

import "math"

// Scale is a linear rescale between a hub range and a capability range.
// Both directions round to the nearest integer, so a round trip may drift
// by one unit of the coarser range.
type Scale struct {
	HubMin, HubMax int
	CapMin, CapMax int
}

// Percent255 maps 0-255 dimmer levels to 0-100 percent
var Percent255 = Scale{HubMin: 0, HubMax: 255, CapMin: 0, CapMax: 100}

// ToCapability rescales a hub value, clamped to the hub range first
func (s Scale) ToCapability(h int) int {
	h = clamp(h, s.HubMin, s.HubMax)
	return mapRange(h, s.HubMin, s.HubMax, s.CapMin, s.CapMax)
}

// ToHub rescales a capability value, clamped to the capability range first
func (s Scale) ToHub(c int) int {
	c = clamp(c, s.CapMin, s.CapMax)
	return mapRange(c, s.CapMin, s.CapMax, s.HubMin, s.HubMax)
}

func mapRange(x, inMin, inMax, outMin, outMax int) int {
	if inMax == inMin {
		return outMin
	}
	f := float64(x-inMin)*float64(outMax-outMin)/float64(inMax-inMin) + float64(outMin)
	return int(math.Round(f))
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
