package transform

import "sync"

// RestorePolicy describes which magnitudes are worth remembering and what
// to fall back to when nothing was ever observed.
type RestorePolicy struct {
	Default int
	Min     int // smallest magnitude that counts as "on"
	Max     int
}

// DefaultRestorePolicy is the brightness/speed policy: 1-100, restore to 100
var DefaultRestorePolicy = RestorePolicy{Default: 100, Min: 1, Max: 100}

// RestoreCell remembers the last nonzero magnitude of a power-style
// characteristic whose hub property is really a level (dimmer, fan speed),
// so "on" can put back what "off" took away.
//
// Host callbacks and hub events arrive on different goroutines, hence the lock.
type RestoreCell struct {
	mu     sync.Mutex
	policy RestorePolicy
	value  int
	set    bool
}

// NewRestoreCell returns an empty cell
func NewRestoreCell(p RestorePolicy) *RestoreCell {
	return &RestoreCell{policy: p}
}

// Policy returns the cell's policy
func (c *RestoreCell) Policy() RestorePolicy {
	return c.policy
}

func (c *RestoreCell) inRange(m int) bool {
	return m >= c.policy.Min && m <= c.policy.Max
}

// Observe records a magnitude if it is a valid "on" level. It reports
// whether the value was kept.
func (c *RestoreCell) Observe(m int) bool {
	if !c.inRange(m) {
		return false
	}
	c.mu.Lock()
	c.value = m
	c.set = true
	c.mu.Unlock()
	return true
}

// Value returns the cached magnitude and whether one was ever observed
func (c *RestoreCell) Value() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Restore returns the cached magnitude, or the policy default
func (c *RestoreCell) Restore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.value
	}
	return c.policy.Default
}

// Reset forgets the cached magnitude
func (c *RestoreCell) Reset() {
	c.mu.Lock()
	c.value = 0
	c.set = false
	c.mu.Unlock()
}

// Toggle computes the magnitude to write for an on/off request. current is
// the magnitude the device reports right now; it is cached before turning
// off so a later "on" can restore it.
func (c *RestoreCell) Toggle(on bool, current int) int {
	c.Observe(current)
	if !on {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		c.value = c.policy.Default
		c.set = true
	}
	return c.value
}
