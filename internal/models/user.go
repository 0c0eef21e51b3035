package models

import (
	"fmt"
	"time"
)

// Platform identifies the push channel a device token belongs to
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// Device is a user's push registration. The same value is mirrored onto every
// RSVP the user owns.
type Device struct {
	Token          string   `json:"token,omitempty"`
	Platform       Platform `json:"platform,omitempty"`
	EndpointHandle string   `json:"endpoint_handle,omitempty"`
}

// Registered reports whether the device carries a token and platform
func (d Device) Registered() bool {
	return d.Token != "" && d.Platform != ""
}

// Deliverable reports whether a message can be sent to this device
func (d Device) Deliverable() bool {
	return d.EndpointHandle != "" && d.Platform != ""
}

// DeviceClaim is what a client reports about its current device. An empty
// claim unregisters the device.
type DeviceClaim struct {
	Token    string   `json:"token"`
	Platform Platform `json:"platform"`
}

// Empty reports whether the claim carries neither token nor platform
func (c DeviceClaim) Empty() bool {
	return c.Token == "" && c.Platform == ""
}

// Validate rejects half-filled or unknown registrations
func (c DeviceClaim) Validate() error {
	if c.Empty() {
		return nil
	}
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if c.Platform == "" {
		return fmt.Errorf("%w: platform is required", ErrInvalidInput)
	}
	if !c.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, c.Platform)
	}
	return nil
}

// Matches reports whether the claim names the same registration as d
func (c DeviceClaim) Matches(d Device) bool {
	return c.Token == d.Token && c.Platform == d.Platform
}

// UserPreferences holds discovery settings
type UserPreferences struct {
	DistanceRange int    `json:"distance_range"`
	DistanceUnits string `json:"distance_units"`
}

// User represents an account
type User struct {
	ID             string          `json:"id"`
	Firstname      string          `json:"firstname"`
	Lastname       string          `json:"lastname"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	Interests      []string        `json:"interests"`
	Preferences    UserPreferences `json:"preferences"`
	Device         Device          `json:"device"`
	DeviceRevision int64           `json:"device_revision"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	DeletedAt      *time.Time      `json:"-"`
}

// PublicView is the user as seen by other accounts, without the push
// registration
func (u *User) PublicView() *User {
	view := *u
	view.Device = Device{}
	view.DeviceRevision = 0
	return &view
}

// FullName joins first and last name, falling back to the email
func (u *User) FullName() string {
	switch {
	case u.Firstname != "" && u.Lastname != "":
		return u.Firstname + " " + u.Lastname
	case u.Firstname != "":
		return u.Firstname
	case u.Lastname != "":
		return u.Lastname
	}
	return u.Email
}

// ProfileUpdate is a partial update of profile fields
type ProfileUpdate struct {
	Firstname   *string          `json:"firstname,omitempty"`
	Lastname    *string          `json:"lastname,omitempty"`
	Interests   *[]string        `json:"interests,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// Empty reports whether the update changes nothing
func (u ProfileUpdate) Empty() bool {
	return u.Firstname == nil && u.Lastname == nil && u.Interests == nil && u.Preferences == nil
}
