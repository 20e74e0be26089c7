package updates

import "time"

// Status is the outcome of the most recent update check: what is pending and
// what the analysis concluded.
type Status struct {
	CheckedAt     time.Time       `json:"checked_at"`
	AddonUpdates  []PendingUpdate `json:"addon_updates"`
	CustomUpdates []PendingUpdate `json:"custom_updates"`
	Analysis      *Analysis       `json:"analysis,omitempty"`
}

// Total returns the number of pending updates.
func (s *Status) Total() int {
	return len(s.AddonUpdates) + len(s.CustomUpdates)
}
