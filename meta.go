package gopager

import (
	"net/url"
	"strconv"
	"strings"
)

// Request is a typed list request. It is meant to be embedded into API
// payloads:
//
//	type ListUsersRequest struct {
//	    gopager.Request `json:",inline"`
//	}
type Request struct {
	// Limit is the page size. Zero means "not supplied".
	Limit int `json:"limit" form:"limit"`
	// Page is 1-based.
	Page  int       `json:"page" form:"page"`
	Order Direction `json:"order" form:"order"`
	// Search is a free-text term matched against SearchSpec columns.
	Search string `json:"q" form:"q"`
}

// ParseRequest reads a Request from query parameters. It never fails:
// malformed numbers are treated as absent and left to normalization.
func ParseRequest(values url.Values) Request {
	atoi := func(key string) int {
		n, err := strconv.Atoi(strings.TrimSpace(values.Get(key)))
		if err != nil {
			return 0
		}

		return n
	}

	return Request{
		Limit:  atoi("limit"),
		Page:   atoi("page"),
		Order:  ParseDirection(values.Get("order"), ""),
		Search: values.Get("q"),
	}
}

// PageMeta describes a page within the filtered dataset.
type PageMeta struct {
	ItemsPerPage    int   `json:"itemsPerPage"`
	TotalItems      int64 `json:"totalItems"`
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPageMeta derives the page metadata. An empty dataset still has one page.
func NewPageMeta(b Bounds, totalItems int64) PageMeta {
	totalPages := FirstPage
	if totalItems > 0 {
		totalPages = max(FirstPage, int((totalItems+int64(b.Limit)-1)/int64(b.Limit)))
	}

	return PageMeta{
		ItemsPerPage:    b.Limit,
		TotalItems:      totalItems,
		CurrentPage:     b.Page,
		TotalPages:      totalPages,
		HasNextPage:     b.Page < totalPages,
		HasPreviousPage: b.Page > FirstPage,
	}
}

// Result is one page of T with its metadata and navigation links.
type Result[T any] struct {
	Data  []T       `json:"data"`
	Meta  PageMeta  `json:"meta"`
	Links PageLinks `json:"links"`
}

func newResult[T any](data []T, b Bounds, totalItems int64, rc RequestContext) *Result[T] {
	if data == nil {
		data = []T{}
	}

	meta := NewPageMeta(b, totalItems)

	return &Result[T]{
		Data:  data,
		Meta:  meta,
		Links: BuildLinks(rc, meta.ItemsPerPage, meta.CurrentPage, meta.TotalPages),
	}
}
