// Package database provides storage backends for the story platform.
package database

import (
	"errors"
	"time"

	"github.com/UndrAds/snappy-sub001/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	// User operations
	CreateUser(u *model.User) error
	GetUserByID(id string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	ListUsers(p model.ListParams) ([]model.User, int, error)

	// Story operations
	CreateStory(s *model.Story) error
	GetStory(id string) (*model.Story, error)
	UpdateStory(s *model.Story) error
	DeleteStory(id string) error
	ListStoriesByOwner(userID string) ([]model.Story, error)
	ListStories(p model.StoryListParams) ([]model.Story, int, error)

	// RSS bookkeeping
	SetRSSTimestamps(storyID string, last, next time.Time) error
	ListDueDynamicStories(now time.Time) ([]model.Story, error)

	// Analytics
	RecordView(v *model.StoryView) error
	StoryAnalytics(storyID string) (*model.StoryAnalytics, error)
	UserStoriesAnalytics(userID string) ([]model.StoryAnalytics, error)

	// Admin
	Stats() (*model.AdminStats, error)
}
