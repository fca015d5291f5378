package pagination

// State is the filter/search/page state behind a list screen.
// Changing the filter or the query always sends the user back to page 1.
type State struct {
	Filter string
	Query  string
	Page   int
	Size   int
}

// NewState returns a state positioned on page 1
func NewState(size int) *State {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &State{Page: 1, Size: size}
}

// SetFilter changes the filter and resets the page when the value differs
func (s *State) SetFilter(filter string) {
	if filter != s.Filter {
		s.Filter = filter
		s.Page = 1
	}
}

// SetQuery changes the search text and resets the page when the value differs
func (s *State) SetQuery(query string) {
	if query != s.Query {
		s.Query = query
		s.Page = 1
	}
}

// SetPage moves to page, clamped to [1, TotalPages(totalItems, Size)]
func (s *State) SetPage(page, totalItems int) {
	s.Page = clamp(page, 1, TotalPages(totalItems, s.Size))
}

// Page is one rendered page of a list
type Page[T any] struct {
	Items        []T      `json:"items"`
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalItems   int      `json:"total_items"`
	Buttons      []Button `json:"buttons"`
	ShowControls bool     `json:"show_controls"`
}

// FilterFunc narrows a list by the state's filter and query
type FilterFunc[T any] func(items []T, filter, query string) []T

// Apply filters items (when filter is non-nil), clamps the current page and
// slices out the visible page.
func Apply[T any](s *State, items []T, filter FilterFunc[T]) Page[T] {
	if s.Size <= 0 {
		s.Size = DefaultPageSize
	}
	filtered := items
	if filter != nil {
		filtered = filter(items, s.Filter, s.Query)
	}

	total := TotalPages(len(filtered), s.Size)
	s.Page = clamp(s.Page, 1, total)

	return Page[T]{
		Items:        Slice(filtered, s.Size, s.Page),
		Page:         s.Page,
		TotalPages:   total,
		TotalItems:   len(filtered),
		Buttons:      Buttons(s.Page, total),
		ShowControls: total > 1,
	}
}
