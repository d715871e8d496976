package types

import "strings"

// User represents the authenticated account as returned by the backend.
// It is fetched after login and on session validation, and cleared on logout.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Name is the user's display name.
	Name string `json:"name"`

	// Email is the user's email address, also used as login.
	Email string `json:"email"`

	// Role is the authorization category assigned by the backend.
	Role Role `json:"role"`

	// Phone is the optional contact phone number.
	Phone string `json:"phone,omitempty"`

	// Address is the optional postal address.
	Address string `json:"address,omitempty"`

	// Avatar is the optional object key of the profile picture,
	// served through the file-serving URL.
	Avatar string `json:"avatar,omitempty"`

	// Sex is the optional sex marker ("M" or "F").
	Sex string `json:"sex,omitempty"`
}

// ProfileUpdate carries the editable fields of the current user's profile.
type ProfileUpdate struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Sex     string `json:"sex,omitempty"`
}

// Validate reports missing required fields.
func (p ProfileUpdate) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(p.Email) == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	return nil
}

// RecordID implements the identifiable record contract used by CRUD screens.
func (p ProfileUpdate) RecordID() int {
	return p.ID
}
