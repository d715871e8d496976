package listing

// DefaultWindow is the number of page links shown by default.
const DefaultWindow = 5

// PageLink is one entry of the pager widget.
type PageLink struct {
	Number  int
	First   bool
	Last    bool
	Current bool
}

// Pager is the computed pager for a list view.
type Pager struct {
	Current int
	Total   int
	Links   []PageLink
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

// Window returns up to width consecutive page numbers around current,
// clamped to 1..last and centered when there is room on both sides.
func Window(current, last, width int) []PageLink {
	if last < 1 {
		last = 1
	}
	if width < 1 {
		width = DefaultWindow
	}
	if current < 1 {
		current = 1
	}
	if current > last {
		current = last
	}
	if width > last {
		width = last
	}

	start := current - (width-1)/2
	if start < 1 {
		start = 1
	}
	end := start + width - 1
	if end > last {
		end = last
		start = end - width + 1
	}

	links := make([]PageLink, 0, width)
	for n := start; n <= end; n++ {
		links = append(links, PageLink{
			Number:  n,
			First:   n == 1,
			Last:    n == last,
			Current: n == current,
		})
	}
	return links
}

// NewPager builds the pager state for current of last pages.
func NewPager(current, last, width int) Pager {
	if last < 1 {
		last = 1
	}
	if current < 1 {
		current = 1
	}
	p := Pager{
		Current: current,
		Total:   last,
		Links:   Window(current, last, width),
		HasPrev: current > 1,
		HasNext: current < last,
	}
	if p.HasPrev {
		p.Prev = current - 1
	}
	if p.HasNext {
		p.Next = current + 1
	}
	return p
}
