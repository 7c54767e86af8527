package services

// PropertyPageSize is the fixed page size of listing queries.
const PropertyPageSize = 10

// Page is one page of results plus the numbers a client needs to paginate.
type Page[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

func newPage[T any](data []T, page, perPage int, total int64) *Page[T] {
	if data == nil {
		data = []T{}
	}
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	return &Page[T]{
		Data:        data,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    last,
	}
}

// normalizePage clamps page to >= 1 and perPage into (0, max].
func normalizePage(page, perPage, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > max {
		perPage = max
	}
	return page, perPage
}

func offset(page, perPage int) int {
	return (page - 1) * perPage
}
