package admin

import (
	"fmt"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// FetchUsersFunc loads one page of users for the given state.
type FetchUsersFunc func(model.ListParams) ([]model.User, int, error)

// FetchStoriesFunc loads one page of stories for the given state.
type FetchStoriesFunc func(model.StoryListParams) ([]model.Story, int, error)

// Controller keeps independent listing state for the user and story
// collections and replays every state change against the backend.
type Controller struct {
	Users   *ListState
	Stories *ListState

	fetchUsers   FetchUsersFunc
	fetchStories FetchStoriesFunc

	// The story view's owner filter needs the user collection; it is
	// loaded once, before the first story fetch.
	usersLoaded bool
}

// NewController creates a controller over the two fetch functions.
func NewController(users FetchUsersFunc, stories FetchStoriesFunc) *Controller {
	return &Controller{
		Users:        NewListState("created_at"),
		Stories:      NewListState("created_at"),
		fetchUsers:   users,
		fetchStories: stories,
	}
}

// LoadUsers fetches the current user page.
func (c *Controller) LoadUsers() ([]model.User, int, error) {
	users, total, err := c.fetchUsers(c.Users.Params())
	if err != nil {
		return nil, 0, fmt.Errorf("load users: %w", err)
	}
	c.usersLoaded = true
	return users, total, nil
}

// LoadStories fetches the current story page. On first activation the user
// collection is loaded first, so the owner-filter selector has data; the
// ordering constraint exists only on that first call.
func (c *Controller) LoadStories() ([]model.Story, int, error) {
	if !c.usersLoaded {
		if _, _, err := c.LoadUsers(); err != nil {
			return nil, 0, err
		}
	}
	stories, total, err := c.fetchStories(c.Stories.StoryParams())
	if err != nil {
		return nil, 0, fmt.Errorf("load stories: %w", err)
	}
	return stories, total, nil
}
