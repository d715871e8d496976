package types

import "strings"

// Parent is a pupil's guardian registered with the school.
type Parent struct {
	// ID is the backend identifier. Zero means the record is not saved yet.
	ID int `json:"id,omitempty"`

	// FirstName and LastName identify the parent.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Phone is the primary contact number.
	Phone string `json:"phone"`

	// Email is optional.
	Email string `json:"email,omitempty"`

	// Address is the home address.
	Address string `json:"address,omitempty"`

	// Profession is free text.
	Profession string `json:"profession,omitempty"`

	// Sex is "M" or "F".
	Sex string `json:"sex,omitempty"`

	// Image is the object key of the uploaded photo, if any.
	Image string `json:"image,omitempty"`
}

// RecordID returns the backend identifier.
func (p Parent) RecordID() int {
	return p.ID
}

// Validate reports missing required fields.
func (p Parent) Validate() error {
	switch {
	case strings.TrimSpace(p.FirstName) == "":
		return &ValidationError{Field: "first_name", Message: "first name is required"}
	case strings.TrimSpace(p.LastName) == "":
		return &ValidationError{Field: "last_name", Message: "last name is required"}
	case strings.TrimSpace(p.Phone) == "":
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}
	if p.Sex != "" && p.Sex != "M" && p.Sex != "F" {
		return &ValidationError{Field: "sex", Message: "sex must be M or F"}
	}
	return nil
}
