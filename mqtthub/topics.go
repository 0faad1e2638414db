package mqtthub

import "strings"

// Topics is the gateway's topic layout under a prefix:
//
//	<prefix>/status                          online | offline (retained)
//	<prefix>/roster                          JSON list of device ids (retained)
//	<prefix>/devices/<id>/meta               JSON device info, empty when removed (retained)
//	<prefix>/devices/<id>/props/<name>       property value (retained)
//	<prefix>/devices/<id>/props/<name>/set   writes from the bridge
type Topics struct {
	Prefix string
}

// Status is where the gateway reports whether the hub is reachable
func (t Topics) Status() string { return t.Prefix + "/status" }

// Roster is where the gateway lists the hub's devices
func (t Topics) Roster() string { return t.Prefix + "/roster" }

// Meta is a device's info topic
func (t Topics) Meta(id string) string { return t.Prefix + "/devices/" + id + "/meta" }

// Prop is a device property's value topic
func (t Topics) Prop(id, name string) string {
	return t.Prefix + "/devices/" + id + "/props/" + name
}

// Set is where writes to a property go
func (t Topics) Set(id, name string) string { return t.Prop(id, name) + "/set" }

// Subscription matches everything the bridge listens to
func (t Topics) Subscription() string { return t.Prefix + "/#" }

type topicKind int

const (
	topicOther topicKind = iota
	topicStatus
	topicRoster
	topicMeta
	topicProp
)

// parse classifies a topic. Set topics, including our own echoes, are topicOther.
func (t Topics) parse(topic string) (kind topicKind, id, prop string) {
	rest := strings.TrimPrefix(topic, t.Prefix+"/")
	if rest == topic {
		return topicOther, "", ""
	}
	switch rest {
	case "status":
		return topicStatus, "", ""
	case "roster":
		return topicRoster, "", ""
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 3 || parts[0] != "devices" || parts[1] == "" {
		return topicOther, "", ""
	}
	switch {
	case len(parts) == 3 && parts[2] == "meta":
		return topicMeta, parts[1], ""
	case len(parts) == 4 && parts[2] == "props" && parts[3] != "":
		return topicProp, parts[1], parts[3]
	}
	return topicOther, "", ""
}
