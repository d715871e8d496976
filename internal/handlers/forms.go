package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/schooldesk/console/internal/rbac"
	"github.com/schooldesk/console/types"
)

// maxSupplierOptions bounds the supplier picker of the receipt form.
const maxSupplierOptions = 100

var sexOptions = []formOption{{Value: "M", Label: "Male"}, {Value: "F", Label: "Female"}}

func (h *Handler) parentScreen() resourceScreen[types.Parent] {
	return resourceScreen[types.Parent]{
		key:      rbac.KeyParents,
		title:    "Parents",
		singular: "parent",
		res:      h.parents,
		columns:  []string{"Last name", "First name", "Phone", "Email", "Profession"},
		row: func(p types.Parent) []string {
			return []string{p.LastName, p.FirstName, p.Phone, p.Email, p.Profession}
		},
		image: func(p types.Parent) string { return p.Image },
		fields: func(_ context.Context, _ string, p types.Parent) []formField {
			return []formField{
				{Name: "first_name", Label: "First name", Type: "text", Value: p.FirstName, Required: true},
				{Name: "last_name", Label: "Last name", Type: "text", Value: p.LastName, Required: true},
				{Name: "phone", Label: "Phone", Type: "tel", Value: p.Phone, Required: true},
				{Name: "email", Label: "Email", Type: "email", Value: p.Email},
				{Name: "address", Label: "Address", Type: "text", Value: p.Address},
				{Name: "profession", Label: "Profession", Type: "text", Value: p.Profession},
				{Name: "sex", Label: "Sex", Value: p.Sex, Options: selectOptions(sexOptions, p.Sex)},
			}
		},
		decode: func(form url.Values) (types.Parent, error) {
			p := types.Parent{
				FirstName:  strings.TrimSpace(form.Get("first_name")),
				LastName:   strings.TrimSpace(form.Get("last_name")),
				Phone:      strings.TrimSpace(form.Get("phone")),
				Email:      strings.TrimSpace(form.Get("email")),
				Address:    strings.TrimSpace(form.Get("address")),
				Profession: strings.TrimSpace(form.Get("profession")),
				Sex:        strings.ToUpper(strings.TrimSpace(form.Get("sex"))),
			}
			id, err := decodeID(form)
			p.ID = id
			return p, err
		},
	}
}

func (h *Handler) supplierScreen() resourceScreen[types.Supplier] {
	return resourceScreen[types.Supplier]{
		key:      rbac.KeySuppliers,
		title:    "Suppliers",
		singular: "supplier",
		res:      h.suppliers,
		columns:  []string{"Name", "Contact", "Phone", "Email"},
		row: func(s types.Supplier) []string {
			return []string{s.Name, s.Contact, s.Phone, s.Email}
		},
		fields: func(_ context.Context, _ string, s types.Supplier) []formField {
			return []formField{
				{Name: "name", Label: "Name", Type: "text", Value: s.Name, Required: true},
				{Name: "contact", Label: "Contact person", Type: "text", Value: s.Contact},
				{Name: "phone", Label: "Phone", Type: "tel", Value: s.Phone, Required: true},
				{Name: "email", Label: "Email", Type: "email", Value: s.Email},
				{Name: "address", Label: "Address", Type: "text", Value: s.Address},
			}
		},
		decode: func(form url.Values) (types.Supplier, error) {
			s := types.Supplier{
				Name:    strings.TrimSpace(form.Get("name")),
				Contact: strings.TrimSpace(form.Get("contact")),
				Phone:   strings.TrimSpace(form.Get("phone")),
				Email:   strings.TrimSpace(form.Get("email")),
				Address: strings.TrimSpace(form.Get("address")),
			}
			id, err := decodeID(form)
			s.ID = id
			return s, err
		},
	}
}

func (h *Handler) receiptScreen() resourceScreen[types.InventoryReceipt] {
	return resourceScreen[types.InventoryReceipt]{
		key:      rbac.KeyReceipts,
		title:    "Inventory receipts",
		singular: "receipt",
		res:      h.receipts,
		columns:  []string{"Date", "Supplier", "Reference", "Item", "Quantity", "Unit price", "Total"},
		row: func(rc types.InventoryReceipt) []string {
			supplier := rc.SupplierName
			if supplier == "" {
				supplier = "#" + strconv.Itoa(rc.SupplierID)
			}
			return []string{
				rc.ReceivedOn,
				supplier,
				rc.Reference,
				rc.Item,
				strconv.Itoa(rc.Quantity),
				formatAmount(rc.UnitPrice),
				formatAmount(rc.Total()),
			}
		},
		fields: func(ctx context.Context, token string, rc types.InventoryReceipt) []formField {
			return []formField{
				h.supplierField(ctx, token, rc.SupplierID),
				{Name: "reference", Label: "Reference", Type: "text", Value: rc.Reference},
				{Name: "item", Label: "Item", Type: "text", Value: rc.Item, Required: true},
				{Name: "quantity", Label: "Quantity", Type: "number", Value: optionalInt(rc.Quantity), Required: true},
				{Name: "unit_price", Label: "Unit price", Type: "number", Value: optionalAmount(rc.UnitPrice), Required: true},
				{Name: "received_on", Label: "Received on", Type: "date", Value: rc.ReceivedOn, Required: true},
				{Name: "note", Label: "Note", Type: "textarea", Value: rc.Note},
			}
		},
		decode: func(form url.Values) (types.InventoryReceipt, error) {
			rc := types.InventoryReceipt{
				Reference:  strings.TrimSpace(form.Get("reference")),
				Item:       strings.TrimSpace(form.Get("item")),
				ReceivedOn: strings.TrimSpace(form.Get("received_on")),
				Note:       strings.TrimSpace(form.Get("note")),
			}
			id, err := decodeID(form)
			rc.ID = id
			if err != nil {
				return rc, err
			}
			if rc.SupplierID, err = parseOptionalInt(form.Get("supplier_id")); err != nil {
				return rc, &types.ValidationError{Field: "supplier_id", Message: "supplier is invalid"}
			}
			if rc.Quantity, err = parseOptionalInt(form.Get("quantity")); err != nil {
				return rc, &types.ValidationError{Field: "quantity", Message: "quantity must be a whole number"}
			}
			if rc.UnitPrice, err = parseOptionalFloat(form.Get("unit_price")); err != nil {
				return rc, &types.ValidationError{Field: "unit_price", Message: "unit price must be a number"}
			}
			return rc, nil
		},
	}
}

// supplierField offers the first suppliers as choices. When they cannot be
// listed the form falls back to a plain id input.
func (h *Handler) supplierField(ctx context.Context, token string, selected int) formField {
	field := formField{Name: "supplier_id", Label: "Supplier", Type: "number", Value: optionalInt(selected), Required: true}

	page, err := h.suppliers.List(ctx, token, types.PageQuery{Page: 1, Limit: maxSupplierOptions})
	if err != nil || len(page.Data) == 0 {
		if err != nil {
			h.log.WithError(err).Debug("list suppliers for receipt form")
		}
		return field
	}

	for _, s := range page.Data {
		field.Options = append(field.Options, formOption{
			Value:    strconv.Itoa(s.ID),
			Label:    s.Name,
			Selected: s.ID == selected,
		})
	}
	return field
}

func (h *Handler) siteScreen() resourceScreen[types.Site] {
	return resourceScreen[types.Site]{
		key:      rbac.KeySites,
		title:    "Sites",
		singular: "site",
		res:      h.sites,
		columns:  []string{"Name", "Motto", "Phone", "Email", "Currency"},
		row: func(s types.Site) []string {
			return []string{s.Name, s.Motto, s.Phone, s.Email, s.Currency}
		},
		image: func(s types.Site) string { return s.Logo },
		fields: func(_ context.Context, _ string, s types.Site) []formField {
			return []formField{
				{Name: "name", Label: "Name", Type: "text", Value: s.Name, Required: true},
				{Name: "motto", Label: "Motto", Type: "text", Value: s.Motto},
				{Name: "address", Label: "Address", Type: "text", Value: s.Address},
				{Name: "phone", Label: "Phone", Type: "tel", Value: s.Phone},
				{Name: "email", Label: "Email", Type: "email", Value: s.Email},
				{Name: "currency", Label: "Currency", Type: "text", Value: s.Currency},
			}
		},
		decode: func(form url.Values) (types.Site, error) {
			s := types.Site{
				Name:     strings.TrimSpace(form.Get("name")),
				Motto:    strings.TrimSpace(form.Get("motto")),
				Address:  strings.TrimSpace(form.Get("address")),
				Phone:    strings.TrimSpace(form.Get("phone")),
				Email:    strings.TrimSpace(form.Get("email")),
				Currency: strings.ToUpper(strings.TrimSpace(form.Get("currency"))),
			}
			id, err := decodeID(form)
			s.ID = id
			return s, err
		},
	}
}

func decodeID(form url.Values) (int, error) {
	id, err := parseOptionalInt(form.Get("id"))
	if err != nil || id < 0 {
		return 0, &types.ValidationError{Field: "id", Message: "invalid record id"}
	}
	return id, nil
}

func selectOptions(options []formOption, selected string) []formOption {
	out := make([]formOption, len(options))
	for i, o := range options {
		o.Selected = o.Value == selected
		out[i] = o
	}
	return out
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func optionalAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
