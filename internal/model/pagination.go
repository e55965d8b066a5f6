package model

// Pagination defaults and caps for listing endpoints.
const (
	DefaultPageSize = 15
	MaxPageSize     = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListParams carries pagination, sorting and search state for a listing.
type ListParams struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Search    string `json:"search"`
}

// Normalize clamps page/limit, whitelists the sort field and defaults the
// sort order to descending.
func (p *ListParams) Normalize(allowedSort []string, defaultSort string) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > MaxPageSize {
		p.Limit = DefaultPageSize
	}
	ok := false
	for _, f := range allowedSort {
		if p.SortBy == f {
			ok = true
			break
		}
	}
	if !ok {
		p.SortBy = defaultSort
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		p.SortOrder = SortDesc
	}
}

// Offset is the row offset for the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// StoryListParams adds the admin story filters to ListParams.
type StoryListParams struct {
	ListParams
	Status StoryStatus `json:"status,omitempty"`
	UserID string      `json:"user_id,omitempty"`
}

// PaginationResponse describes the page that was returned.
type PaginationResponse struct {
	TotalItems   int `json:"total_items"`
	TotalPages   int `json:"total_pages"`
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
}

// NewPaginationResponse computes page counts for a listing response.
func NewPaginationResponse(total int, p ListParams) PaginationResponse {
	return PaginationResponse{
		TotalItems:   total,
		TotalPages:   (total + p.Limit - 1) / p.Limit,
		CurrentPage:  p.Page,
		ItemsPerPage: p.Limit,
	}
}
