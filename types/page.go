package types

// PageQuery is the request payload of every list endpoint.
type PageQuery struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Query string `json:"query"`
}

// PageResult is one page of records. Each fetch produces a fresh result
// that fully replaces the previous one.
type PageResult[T any] struct {
	Data     []T `json:"data"`
	Page     int `json:"page,omitempty"`
	LastPage int `json:"lastPage"`
}
