package types

import "strings"

// Supplier is a vendor the school receives inventory from.
type Supplier struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// RecordID returns the backend identifier.
func (s Supplier) RecordID() int {
	return s.ID
}

// Validate reports missing required fields.
func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(s.Phone) == "" {
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}
	return nil
}
