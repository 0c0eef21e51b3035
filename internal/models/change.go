package models

// Category is the kind of event change subscribers can opt in to
type Category string

const (
	CategoryUpdate       Category = "update"
	CategoryAnnouncement Category = "announcement"
	CategoryComment      Category = "comment"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryUpdate, CategoryAnnouncement, CategoryComment:
		return true
	}
	return false
}

// ChangeKind selects the notification path for a Change
type ChangeKind string

const (
	// ChangeEvent fans out to the event's subscribers
	ChangeEvent ChangeKind = "event_change"
	// ChangeRsvpCreated notifies the event creator only
	ChangeRsvpCreated ChangeKind = "rsvp_created"
)

// Change is published by mutation handlers and consumed by the dispatcher
type Change struct {
	Kind     ChangeKind `json:"kind"`
	EventID  string     `json:"event_id"`
	Category Category   `json:"category,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	Event    *Event     `json:"event,omitempty"`
}
