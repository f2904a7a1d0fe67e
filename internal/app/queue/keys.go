package queue

import "fmt"

// Key names inside a tenant's key family.
const (
	keyCurrent     = "current"
	keyNext        = "next"
	keyPosition    = "position"
	keySkips       = "skips" // reserved, no operations
	keySystemPause = "systemPause"
	keyReplay      = "replay"
	keyVolume      = "volume"
	keyText        = "text"
)

// Keys is the namespaced key family of one tenant.
type Keys struct {
	Current     string
	Next        string
	Position    string
	Skips       string
	SystemPause string
	Replay      string
	Volume      string
	Text        string
}

// NewKeys builds the key family for tenantID under prefix.
// The tenant ID is wrapped in a hash tag so the family shares one cluster slot.
func NewKeys(prefix, tenantID string) Keys {
	k := func(name string) string {
		return fmt.Sprintf("%s:{%s}:%s", prefix, tenantID, name)
	}
	return Keys{
		Current:     k(keyCurrent),
		Next:        k(keyNext),
		Position:    k(keyPosition),
		Skips:       k(keySkips),
		SystemPause: k(keySystemPause),
		Replay:      k(keyReplay),
		Volume:      k(keyVolume),
		Text:        k(keyText),
	}
}

// All returns every key in the family.
func (k Keys) All() []string {
	return []string{k.Current, k.Next, k.Position, k.Skips, k.SystemPause, k.Replay, k.Volume, k.Text}
}

// PhysicalIndex maps a logical pending-list index (0 = next to play) to the
// index of the stored list, which keeps the newest entry at its head.
func PhysicalIndex(logical int64) int64 {
	return -logical - 1
}
