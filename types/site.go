package types

import "strings"

// Site is the configuration of one school site: identity shown on
// documents and its logo.
type Site struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	Motto    string `json:"motto,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Currency string `json:"currency,omitempty"`
	Logo     string `json:"logo,omitempty"`
}

// RecordID returns the backend identifier.
func (s Site) RecordID() int {
	return s.ID
}

// Validate reports missing required fields.
func (s Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}
