package catalog

// PageSizes are the sizes offered by the page-size selector.
var PageSizes = []int{5, 10, 20, 50, 100} //nolint:gochecknoglobals // read-only choices

// Pagination is the paging state of one table view. It lives in the
// request, never on the server.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// NewPagination clamps page to 1 and falls back to defaultSize for a
// non-positive size.
func NewPagination(page, size, defaultSize int) Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	return Pagination{Page: page, PageSize: size}
}

// SetPageSize changes the size and returns to the first page.
func (p *Pagination) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	p.PageSize = size
	p.Page = 1
}

// TotalPages is never below 1.
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// StepBack moves one page back. It reports false on the first page.
func (p *Pagination) StepBack() bool {
	if p.Page <= 1 {
		return false
	}
	p.Page--
	return true
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages() }

// Prev is the previous page number.
func (p Pagination) Prev() int { return max(1, p.Page-1) }

// Next is the next page number.
func (p Pagination) Next() int { return min(p.TotalPages(), p.Page+1) }
