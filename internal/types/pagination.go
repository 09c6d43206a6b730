package types

// PaginationResponse represents standardized pagination metadata
type PaginationResponse struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListResponse represents a paginated response with items
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// NewPaginationResponse derives the page count from total and limit
func NewPaginationResponse(total, page, limit int) PaginationResponse {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PaginationResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}

// NewListResponse creates a new list response with pagination
func NewListResponse[T any](items []T, total, page, limit int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Items:      items,
		Pagination: NewPaginationResponse(total, page, limit),
	}
}
