package types

import (
	"strings"
	"time"
)

// ReceiptDateLayout is the wire format of InventoryReceipt.ReceivedOn.
const ReceiptDateLayout = "2006-01-02"

// InventoryReceipt records goods received from a supplier.
type InventoryReceipt struct {
	ID int `json:"id,omitempty"`

	// SupplierID references the Supplier the goods come from.
	SupplierID int `json:"supplier_id"`

	// SupplierName is filled by the backend on reads.
	SupplierName string `json:"supplier_name,omitempty"`

	// Reference is the delivery note or invoice number.
	Reference string `json:"reference,omitempty"`

	// Item describes what was received.
	Item string `json:"item"`

	// Quantity must be positive.
	Quantity int `json:"quantity"`

	// UnitPrice is expressed in the site's currency.
	UnitPrice float64 `json:"unit_price"`

	// ReceivedOn is a calendar date in ReceiptDateLayout.
	ReceivedOn string `json:"received_on"`

	Note string `json:"note,omitempty"`
}

// RecordID returns the backend identifier.
func (r InventoryReceipt) RecordID() int {
	return r.ID
}

// Total returns quantity times unit price.
func (r InventoryReceipt) Total() float64 {
	return float64(r.Quantity) * r.UnitPrice
}

// Validate reports missing required fields.
func (r InventoryReceipt) Validate() error {
	if r.SupplierID < 1 {
		return &ValidationError{Field: "supplier_id", Message: "supplier is required"}
	}
	if strings.TrimSpace(r.Item) == "" {
		return &ValidationError{Field: "item", Message: "item is required"}
	}
	if r.Quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if r.UnitPrice < 0 {
		return &ValidationError{Field: "unit_price", Message: "unit price must not be negative"}
	}
	if strings.TrimSpace(r.ReceivedOn) == "" {
		return &ValidationError{Field: "received_on", Message: "reception date is required"}
	}
	if _, err := time.Parse(ReceiptDateLayout, r.ReceivedOn); err != nil {
		return &ValidationError{Field: "received_on", Message: "reception date must be YYYY-MM-DD"}
	}
	return nil
}
