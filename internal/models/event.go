package models

import "time"

// Address is an event venue
type Address struct {
	Street1 string     `json:"street1"`
	Street2 string     `json:"street2,omitempty"`
	City    string     `json:"city"`
	State   string     `json:"state"`
	Zip     string     `json:"zip"`
	Country string     `json:"country"`
	Coords  [2]float64 `json:"coords"`
}

// Event is something users can RSVP to
type Event struct {
	ID           string     `json:"id"`
	CreatorID    string     `json:"creator_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ImageURL     string     `json:"image_url,omitempty"`
	Address      Address    `json:"address"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	InterestTags []string   `json:"interest_tags"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	DeletedAt    *time.Time `json:"-"`
}

// EventUpdate is a partial update of an event
type EventUpdate struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	ImageURL     *string    `json:"image_url,omitempty"`
	Address      *Address   `json:"address,omitempty"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	InterestTags *[]string  `json:"interest_tags,omitempty"`
}

// Empty reports whether the update changes nothing
func (u EventUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.ImageURL == nil &&
		u.Address == nil && u.StartsAt == nil && u.InterestTags == nil
}

// Notifiable reports whether subscribers should hear about this update.
// Image and tag changes are silent.
func (u EventUpdate) Notifiable() bool {
	return u.Title != nil || u.Description != nil || u.Address != nil || u.StartsAt != nil
}

// CommentKind separates participant comments from organizer announcements
type CommentKind string

const (
	KindComment      CommentKind = "comment"
	KindAnnouncement CommentKind = "announcement"
)

// Comment is a message posted on an event
type Comment struct {
	ID        string      `json:"id"`
	EventID   string      `json:"event_id"`
	AuthorID  string      `json:"author_id"`
	Kind      CommentKind `json:"kind"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}
