package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultNumOfRows is the page size used when numOfRows is omitted.
	DefaultNumOfRows = 10
	// MaxNumOfRows is the largest page size a caller may request.
	MaxNumOfRows = 100
)

// OffsetParams holds the parsed pageNo/numOfRows query parameters for the
// address search endpoint.
type OffsetParams struct {
	PageNo    int
	NumOfRows int
	Offset    int // computed from PageNo and NumOfRows
}

// ParseOffsetParams extracts pageNo/numOfRows from the request query string,
// applying defaults and the [1,100] numOfRows bound.
func ParseOffsetParams(r *http.Request) (OffsetParams, error) {
	p := OffsetParams{PageNo: 1, NumOfRows: DefaultNumOfRows}

	if v := r.URL.Query().Get("pageNo"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("pageNo must be a positive integer")
		}
		p.PageNo = n
	}

	if v := r.URL.Query().Get("numOfRows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("numOfRows must be a positive integer")
		}
		if n > MaxNumOfRows {
			n = MaxNumOfRows
		}
		p.NumOfRows = n
	}

	p.Offset = (p.PageNo - 1) * p.NumOfRows
	return p, nil
}

// Pagination is the `data.pagination` block returned alongside a page of
// address search results.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
}

// OffsetPage pairs a page of items with its Pagination block.
type OffsetPage[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewOffsetPage builds an OffsetPage from a result set and the upstream's
// reported total count.
func NewOffsetPage[T any](items []T, params OffsetParams, totalCount int) OffsetPage[T] {
	totalPages := 0
	if params.NumOfRows > 0 {
		totalPages = (totalCount + params.NumOfRows - 1) / params.NumOfRows
	}

	return OffsetPage[T]{
		Items: items,
		Pagination: Pagination{
			CurrentPage: params.PageNo,
			PageSize:    params.NumOfRows,
			TotalCount:  totalCount,
			TotalPages:  totalPages,
		},
	}
}
