package dto

// Pagination is a generic pagination envelope for list results
// Page is 1-based; Total counts all matching items regardless of paging.
type Pagination[T any] struct {
	Data     []T   `json:"data"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func NewPagination[T any](data []T, page, pageSize int, total int64) Pagination[T] {
	if data == nil {
		data = []T{}
	}
	return Pagination[T]{Data: data, Page: page, PageSize: pageSize, Total: total}
}
