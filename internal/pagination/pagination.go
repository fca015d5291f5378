// Package pagination slices filtered lists into fixed-size pages and builds the
// page-button strip shown under list screens.
package pagination

import "math"

// DefaultPageSize is the page size used by list screens when none is configured
const DefaultPageSize = 12

// Button is one entry of the page-button strip. Ellipsis buttons carry no page.
type Button struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// TotalPages returns ceil(n/size), never less than 1
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(size)))
}

// Slice returns items[(page-1)*size : min(page*size, len(items))].
// Pages outside the list yield an empty slice.
func Slice[T any](items []T, size, page int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return []T{}
	}
	// compare page indexes before multiplying so large inputs cannot overflow
	if len(items) == 0 || page-1 > (len(items)-1)/size {
		return []T{}
	}
	start := (page - 1) * size
	end := len(items)
	if size < end-start {
		end = start + size
	}
	return items[start:end]
}

// Buttons builds the page strip: the first page, the last page and a window of
// one page around current. Every gap between shown pages collapses into a
// single ellipsis.
func Buttons(current, total int) []Button {
	if total < 1 {
		total = 1
	}
	current = clamp(current, 1, total)

	var buttons []Button
	last := 0
	for p := 1; p <= total; p++ {
		if p != 1 && p != total && (p < current-1 || p > current+1) {
			continue
		}
		if last != 0 && p-last > 1 {
			buttons = append(buttons, Button{Ellipsis: true})
		}
		buttons = append(buttons, Button{Page: p, Current: p == current})
		last = p
	}
	return buttons
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
