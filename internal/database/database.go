// Package database provides SQLite storage for the story platform.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/UndrAds/snappy-sub001/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false for SQLite.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		publisher_name TEXT DEFAULT '',
		publisher_logo TEXT DEFAULT '',
		format TEXT NOT NULL,
		device TEXT NOT NULL,
		story_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		frames TEXT NOT NULL DEFAULT '[]',
		rss_config TEXT,
		embed_config TEXT,
		rss_active INTEGER NOT NULL DEFAULT 0,
		rss_next_update DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS story_views (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		frame_index INTEGER NOT NULL DEFAULT 0,
		event TEXT NOT NULL,
		occurred_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stories_user ON stories(user_id);
	CREATE INDEX IF NOT EXISTS idx_views_story ON story_views(story_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- User Methods ---

// CreateUser inserts a new user.
func (db *DB) CreateUser(u *model.User) error {
	_, err := db.conn.Exec(`
		INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByID returns a user by id.
func (db *DB) GetUserByID(id string) (*model.User, error) {
	return db.getUser("SELECT id, email, password_hash, name, role, created_at, updated_at FROM users WHERE id = ?", id)
}

// GetUserByEmail returns a user by email.
func (db *DB) GetUserByEmail(email string) (*model.User, error) {
	return db.getUser("SELECT id, email, password_hash, name, role, created_at, updated_at FROM users WHERE email = ?", email)
}

func (db *DB) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	var role string
	err := db.conn.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// ListUsers returns one page of users plus the unpaged total.
func (db *DB) ListUsers(p model.ListParams) ([]model.User, int, error) {
	where := ""
	var args []any
	if p.Search != "" {
		where = " WHERE email LIKE ? OR name LIKE ?"
		pat := "%" + p.Search + "%"
		args = append(args, pat, pat)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT id, email, password_hash, name, role, created_at, updated_at FROM users%s ORDER BY %s %s LIMIT ? OFFSET ?",
		where, sortColumn(p.SortBy, userSortColumns, "created_at"), sortDirection(p.SortOrder))
	rows, err := db.conn.Query(query, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// --- Story Methods ---

const storyColumns = "id, user_id, title, publisher_name, publisher_logo, format, device, story_type, status, frames, rss_config, embed_config, created_at, updated_at"

// CreateStory inserts a new story with its full frame tree.
func (db *DB) CreateStory(s *model.Story) error {
	frames, rssCfg, embedCfg, err := marshalStory(s)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT INTO stories (id, user_id, title, publisher_name, publisher_logo, format, device, story_type, status, frames, rss_config, embed_config, rss_active, rss_next_update, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Title, s.PublisherName, s.PublisherLogo, s.Format, s.Device, s.StoryType,
		string(s.Status), frames, rssCfg, embedCfg, rssActive(s), rssNextUpdate(s), s.CreatedAt, s.UpdatedAt)
	return err
}

// GetStory returns one story with its frames decoded.
func (db *DB) GetStory(id string) (*model.Story, error) {
	row := db.conn.QueryRow("SELECT "+storyColumns+" FROM stories WHERE id = ?", id)
	s, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

// UpdateStory replaces the stored story, frames included.
func (db *DB) UpdateStory(s *model.Story) error {
	frames, rssCfg, embedCfg, err := marshalStory(s)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(`
		UPDATE stories SET title = ?, publisher_name = ?, publisher_logo = ?, format = ?, device = ?,
			story_type = ?, status = ?, frames = ?, rss_config = ?, embed_config = ?,
			rss_active = ?, rss_next_update = ?, updated_at = ?
		WHERE id = ?`,
		s.Title, s.PublisherName, s.PublisherLogo, s.Format, s.Device, s.StoryType, string(s.Status),
		frames, rssCfg, embedCfg, rssActive(s), rssNextUpdate(s), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStory removes a story and, via cascade, its view events.
func (db *DB) DeleteStory(id string) error {
	res, err := db.conn.Exec("DELETE FROM stories WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStoriesByOwner returns all stories of one user, newest first.
func (db *DB) ListStoriesByOwner(userID string) ([]model.Story, error) {
	rows, err := db.conn.Query("SELECT "+storyColumns+" FROM stories WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// ListStories returns one page of the admin story listing plus the total.
func (db *DB) ListStories(p model.StoryListParams) ([]model.Story, int, error) {
	where := " WHERE 1=1"
	var args []any
	if p.Search != "" {
		where += " AND title LIKE ?"
		args = append(args, "%"+p.Search+"%")
	}
	if p.Status != "" {
		where += " AND status = ?"
		args = append(args, string(p.Status))
	}
	if p.UserID != "" {
		where += " AND user_id = ?"
		args = append(args, p.UserID)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM stories"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT "+storyColumns+" FROM stories%s ORDER BY %s %s LIMIT ? OFFSET ?",
		where, sortColumn(p.SortBy, storySortColumns, "created_at"), sortDirection(p.SortOrder))
	rows, err := db.conn.Query(query, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	stories, err := scanStories(rows)
	return stories, total, err
}

// --- RSS Methods ---

// SetRSSTimestamps updates the last/next refresh markers inside the stored
// rss_config and the denormalized scheduling columns.
func (db *DB) SetRSSTimestamps(storyID string, last, next time.Time) error {
	s, err := db.GetStory(storyID)
	if err != nil {
		return err
	}
	if s.RSS == nil {
		return fmt.Errorf("story %s has no rss config", storyID)
	}
	s.RSS.LastUpdate = &last
	s.RSS.NextUpdate = &next
	s.UpdatedAt = time.Now().UTC()
	return db.UpdateStory(s)
}

// ListDueDynamicStories returns active dynamic stories whose next update is due.
func (db *DB) ListDueDynamicStories(now time.Time) ([]model.Story, error) {
	rows, err := db.conn.Query("SELECT "+storyColumns+` FROM stories
		WHERE story_type = 'dynamic' AND rss_active = 1
		AND (rss_next_update IS NULL OR rss_next_update <= ?)`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// --- Analytics Methods ---

// RecordView stores one playback event.
func (db *DB) RecordView(v *model.StoryView) error {
	res, err := db.conn.Exec(`
		INSERT INTO story_views (story_id, frame_index, event, occurred_at)
		VALUES (?, ?, ?, ?)`,
		v.StoryID, v.FrameIndex, v.Event, v.OccurredAt)
	if err != nil {
		return err
	}
	v.ID, _ = res.LastInsertId()
	return nil
}

// StoryAnalytics aggregates view events for one story.
func (db *DB) StoryAnalytics(storyID string) (*model.StoryAnalytics, error) {
	var a model.StoryAnalytics
	err := db.conn.QueryRow(`
		SELECT s.id, s.title,
			COALESCE(SUM(CASE WHEN v.event = 'view' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v.event = 'frame' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v.event = 'cta' THEN 1 ELSE 0 END), 0)
		FROM stories s
		LEFT JOIN story_views v ON v.story_id = s.id
		WHERE s.id = ?
		GROUP BY s.id, s.title`, storyID).
		Scan(&a.StoryID, &a.Title, &a.Views, &a.FrameViews, &a.CTAClicks)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UserStoriesAnalytics aggregates view events per story for one owner.
func (db *DB) UserStoriesAnalytics(userID string) ([]model.StoryAnalytics, error) {
	rows, err := db.conn.Query(`
		SELECT s.id, s.title,
			COALESCE(SUM(CASE WHEN v.event = 'view' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v.event = 'frame' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v.event = 'cta' THEN 1 ELSE 0 END), 0)
		FROM stories s
		LEFT JOIN story_views v ON v.story_id = s.id
		WHERE s.user_id = ?
		GROUP BY s.id, s.title
		ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StoryAnalytics
	for rows.Next() {
		var a model.StoryAnalytics
		if err := rows.Scan(&a.StoryID, &a.Title, &a.Views, &a.FrameViews, &a.CTAClicks); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Admin Methods ---

// Stats returns the admin dashboard counters.
func (db *DB) Stats() (*model.AdminStats, error) {
	var st model.AdminStats
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM stories),
			(SELECT COUNT(*) FROM stories WHERE story_type = 'dynamic'),
			(SELECT COUNT(*) FROM story_views WHERE event = 'view')`).
		Scan(&st.Users, &st.Stories, &st.DynamicStories, &st.Views)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// --- Shared helpers ---

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func marshalStory(s *model.Story) (frames string, rssCfg, embedCfg sql.NullString, err error) {
	model.NormalizeFrames(s.Frames)
	b, err := json.Marshal(s.Frames)
	if err != nil {
		return "", rssCfg, embedCfg, fmt.Errorf("marshal frames: %w", err)
	}
	frames = string(b)
	if s.RSS != nil {
		b, err = json.Marshal(s.RSS)
		if err != nil {
			return "", rssCfg, embedCfg, fmt.Errorf("marshal rss config: %w", err)
		}
		rssCfg = sql.NullString{String: string(b), Valid: true}
	}
	if s.Embed != nil {
		b, err = json.Marshal(s.Embed)
		if err != nil {
			return "", rssCfg, embedCfg, fmt.Errorf("marshal embed config: %w", err)
		}
		embedCfg = sql.NullString{String: string(b), Valid: true}
	}
	return frames, rssCfg, embedCfg, nil
}

func scanStory(r rowScanner) (*model.Story, error) {
	var s model.Story
	var status, frames string
	var rssCfg, embedCfg sql.NullString
	err := r.Scan(&s.ID, &s.UserID, &s.Title, &s.PublisherName, &s.PublisherLogo, &s.Format,
		&s.Device, &s.StoryType, &status, &frames, &rssCfg, &embedCfg, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.StoryStatus(status)
	if err := json.Unmarshal([]byte(frames), &s.Frames); err != nil {
		return nil, fmt.Errorf("unmarshal frames for story %s: %w", s.ID, err)
	}
	if rssCfg.Valid {
		s.RSS = &model.RSSConfig{}
		if err := json.Unmarshal([]byte(rssCfg.String), s.RSS); err != nil {
			return nil, fmt.Errorf("unmarshal rss config for story %s: %w", s.ID, err)
		}
	}
	if embedCfg.Valid {
		s.Embed = &model.EmbedConfig{}
		if err := json.Unmarshal([]byte(embedCfg.String), s.Embed); err != nil {
			return nil, fmt.Errorf("unmarshal embed config for story %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

func scanStories(rows *sql.Rows) ([]model.Story, error) {
	var out []model.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func rssActive(s *model.Story) int {
	if s.StoryType == model.TypeDynamic && s.RSS != nil && s.RSS.Active {
		return 1
	}
	return 0
}

func rssNextUpdate(s *model.Story) sql.NullTime {
	if s.RSS != nil && s.RSS.NextUpdate != nil {
		return sql.NullTime{Time: *s.RSS.NextUpdate, Valid: true}
	}
	return sql.NullTime{}
}

// Sortable columns per entity. The handlers normalize sort fields too, but
// the store enforces its own whitelist against interpolation.
var (
	userSortColumns  = []string{"created_at", "email", "name"}
	storySortColumns = []string{"created_at", "updated_at", "title", "status"}
)

func sortColumn(field string, allowed []string, fallback string) string {
	for _, col := range allowed {
		if field == col {
			return field
		}
	}
	return fallback
}

func sortDirection(order string) string {
	if order == model.SortAsc {
		return "ASC"
	}
	return "DESC"
}
