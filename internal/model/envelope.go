package model

// Envelope is the uniform wrapper around every backend response.
// Data is only meaningful when Success is true.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Page is the paged collection shape returned under data for list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// HasNext reports whether another page follows this one.
func (p *Page[T]) HasNext() bool {
	if p.TotalPages > 0 {
		return p.Number+1 < p.TotalPages
	}
	return !p.Last && len(p.Content) == p.Size && p.Size > 0
}

// HasPrev reports whether a page precedes this one.
func (p *Page[T]) HasPrev() bool {
	return p.Number > 0
}
