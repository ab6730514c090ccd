package pagination

import (
	"net/http"
	"strconv"
)

const (
	MaxItemsPerPage     = 1000
	DefaultItemsPerPage = 20
)

type Pagination struct {
	CurrentPage  uint `json:"current_page"`
	NextPage     uint `json:"next_page"`
	TotalItems   uint `json:"total_items"`
	TotalPages   uint `json:"total_pages"`
	ItemsPerPage uint `json:"items_per_page"`
}

// GeneratePagination reads page and items_per_page from the query string.
func GeneratePagination(r *http.Request) *Pagination {
	p := &Pagination{
		CurrentPage:  1,
		ItemsPerPage: DefaultItemsPerPage,
	}
	q := r.URL.Query()
	if currentPage := q.Get("page"); currentPage != "" {
		if v, err := strconv.Atoi(currentPage); err == nil && v > 0 {
			p.CurrentPage = uint(v)
		}
	}
	if itemsPerPage := q.Get("items_per_page"); itemsPerPage != "" {
		if v, err := strconv.Atoi(itemsPerPage); err == nil && v > 0 {
			p.ItemsPerPage = uint(v)
		}
	}
	if p.ItemsPerPage > MaxItemsPerPage {
		p.ItemsPerPage = MaxItemsPerPage
	}
	return p
}

// Paginate fills in the totals on p and returns the slice of items on the current page.
// A page past the end is clamped to the last page.
func Paginate[T any](items []T, p *Pagination) []T {
	if p.ItemsPerPage == 0 {
		p.ItemsPerPage = DefaultItemsPerPage
	}
	if p.CurrentPage == 0 {
		p.CurrentPage = 1
	}
	p.TotalItems = uint(len(items))
	p.TotalPages = (p.TotalItems + p.ItemsPerPage - 1) / p.ItemsPerPage
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	if p.CurrentPage > p.TotalPages {
		p.CurrentPage = p.TotalPages
	}
	p.NextPage = p.CurrentPage + 1
	if p.NextPage > p.TotalPages {
		p.NextPage = p.TotalPages
	}

	start := int((p.CurrentPage - 1) * p.ItemsPerPage)
	end := start + int(p.ItemsPerPage)
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
