package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOffsetParams(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantPageNo    int
		wantNumOfRows int
		wantOffset    int
		wantErr       bool
	}{
		{
			name:          "defaults",
			query:         "",
			wantPageNo:    1,
			wantNumOfRows: DefaultNumOfRows,
			wantOffset:    0,
		},
		{
			name:          "custom pageNo and numOfRows",
			query:         "pageNo=3&numOfRows=10",
			wantPageNo:    3,
			wantNumOfRows: 10,
			wantOffset:    20,
		},
		{
			name:          "numOfRows capped at max",
			query:         "numOfRows=500",
			wantNumOfRows: MaxNumOfRows,
			wantPageNo:    1,
			wantOffset:    0,
		},
		{
			name:    "negative pageNo",
			query:   "pageNo=-1",
			wantErr: true,
		},
		{
			name:    "zero pageNo",
			query:   "pageNo=0",
			wantErr: true,
		},
		{
			name:    "non-numeric numOfRows",
			query:   "numOfRows=abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p, err := ParseOffsetParams(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOffsetParams() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if p.PageNo != tt.wantPageNo {
				t.Errorf("PageNo = %d, want %d", p.PageNo, tt.wantPageNo)
			}
			if p.NumOfRows != tt.wantNumOfRows {
				t.Errorf("NumOfRows = %d, want %d", p.NumOfRows, tt.wantNumOfRows)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestNewOffsetPage(t *testing.T) {
	type item struct{ Name string }

	tests := []struct {
		name           string
		itemCount      int
		params         OffsetParams
		totalCount     int
		wantTotalPages int
	}{
		{
			name:           "first of multiple pages",
			itemCount:      10,
			params:         OffsetParams{PageNo: 1, NumOfRows: 10},
			totalCount:     25,
			wantTotalPages: 3,
		},
		{
			name:           "single page",
			itemCount:      3,
			params:         OffsetParams{PageNo: 1, NumOfRows: 10},
			totalCount:     3,
			wantTotalPages: 1,
		},
		{
			name:           "exact fit",
			itemCount:      10,
			params:         OffsetParams{PageNo: 1, NumOfRows: 10},
			totalCount:     10,
			wantTotalPages: 1,
		},
		{
			name:           "empty",
			itemCount:      0,
			params:         OffsetParams{PageNo: 1, NumOfRows: 10},
			totalCount:     0,
			wantTotalPages: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]item, tt.itemCount)
			page := NewOffsetPage(items, tt.params, tt.totalCount)

			if len(page.Items) != tt.itemCount {
				t.Errorf("Items length = %d, want %d", len(page.Items), tt.itemCount)
			}
			if page.Pagination.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", page.Pagination.TotalPages, tt.wantTotalPages)
			}
			if page.Pagination.TotalCount != tt.totalCount {
				t.Errorf("TotalCount = %d, want %d", page.Pagination.TotalCount, tt.totalCount)
			}
			if page.Pagination.CurrentPage != tt.params.PageNo {
				t.Errorf("CurrentPage = %d, want %d", page.Pagination.CurrentPage, tt.params.PageNo)
			}
		})
	}
}
