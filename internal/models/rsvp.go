package models

import "time"

// Preferences are the per-RSVP notification opt-ins. All default to false.
type Preferences struct {
	NotifyOnAnnouncement bool `json:"notify_on_announcement"`
	NotifyOnComment      bool `json:"notify_on_comment"`
	NotifyOnUpdates      bool `json:"notify_on_updates"`
}

// Wants reports whether the subscriber opted in to the category
func (p Preferences) Wants(c Category) bool {
	switch c {
	case CategoryUpdate:
		return p.NotifyOnUpdates
	case CategoryAnnouncement:
		return p.NotifyOnAnnouncement
	case CategoryComment:
		return p.NotifyOnComment
	}
	return false
}

// PreferencesUpdate changes only the flags that are set
type PreferencesUpdate struct {
	NotifyOnAnnouncement *bool `json:"notify_on_announcement,omitempty"`
	NotifyOnComment      *bool `json:"notify_on_comment,omitempty"`
	NotifyOnUpdates      *bool `json:"notify_on_updates,omitempty"`
}

// Empty reports whether the update changes nothing
func (u PreferencesUpdate) Empty() bool {
	return u.NotifyOnAnnouncement == nil && u.NotifyOnComment == nil && u.NotifyOnUpdates == nil
}

// Rsvp is a user's attendance on an event. Device is a copy of the owner's
// device at the time of the last sync.
type Rsvp struct {
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	Preferences Preferences `json:"preferences"`
	Device      Device      `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
	DeletedAt   *time.Time  `json:"-"`
}
