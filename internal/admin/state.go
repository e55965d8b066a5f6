// Package admin holds the dashboard's listing state machines: pagination,
// search, sorting and filters for the user and story collections.
package admin

import "github.com/UndrAds/snappy-sub001/internal/model"

// ListState is the query state of one listing. Every mutation returns to
// page 1 except explicit page changes, and re-selecting the current sort
// field toggles the direction instead of resetting it.
type ListState struct {
	page      int
	limit     int
	sortBy    string
	sortOrder string
	search    string
	status    model.StoryStatus
	userID    string
}

// NewListState creates a listing state with the default descending sort.
func NewListState(sortBy string) *ListState {
	return &ListState{
		page:      1,
		limit:     model.DefaultPageSize,
		sortBy:    sortBy,
		sortOrder: model.SortDesc,
	}
}

// SetPage moves to the given page.
func (s *ListState) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.page = page
}

// ToggleSort selects a sort field. Re-selecting the current field flips the
// direction; a new field starts descending.
func (s *ListState) ToggleSort(field string) {
	if s.sortBy == field {
		if s.sortOrder == model.SortDesc {
			s.sortOrder = model.SortAsc
		} else {
			s.sortOrder = model.SortDesc
		}
		return
	}
	s.sortBy = field
	s.sortOrder = model.SortDesc
}

// SetSearch replaces the search text and rewinds to the first page.
func (s *ListState) SetSearch(text string) {
	s.search = text
	s.page = 1
}

// SetStatusFilter filters stories by status and rewinds to the first page.
func (s *ListState) SetStatusFilter(status model.StoryStatus) {
	s.status = status
	s.page = 1
}

// SetUserFilter filters stories by owner and rewinds to the first page.
func (s *ListState) SetUserFilter(userID string) {
	s.userID = userID
	s.page = 1
}

// Params renders the state as listing parameters.
func (s *ListState) Params() model.ListParams {
	return model.ListParams{
		Page:      s.page,
		Limit:     s.limit,
		SortBy:    s.sortBy,
		SortOrder: s.sortOrder,
		Search:    s.search,
	}
}

// StoryParams renders the state as story listing parameters.
func (s *ListState) StoryParams() model.StoryListParams {
	return model.StoryListParams{
		ListParams: s.Params(),
		Status:     s.status,
		UserID:     s.userID,
	}
}
