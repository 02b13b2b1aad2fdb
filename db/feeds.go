package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"newsfeed/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("db: not found")

const feedColumns = "id, name, url, category, description, active, created_at"

func scanFeed(row interface{ Scan(...any) error }) (models.FeedSource, error) {
	var feed models.FeedSource
	var active int
	var createdAt string
	err := row.Scan(&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Description, &active, &createdAt)
	if err != nil {
		return models.FeedSource{}, err
	}
	feed.Active = active != 0
	feed.CreatedAt = parseTime(createdAt)
	return feed, nil
}

// ListFeeds returns all feed sources ordered by category then name.
// With onlyActive set, inactive sources are excluded.
func (db *DB) ListFeeds(ctx context.Context, onlyActive bool) ([]models.FeedSource, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns).From("feeds")
	if onlyActive {
		sb.Where(sb.Equal("active", 1))
	}
	sb.OrderBy("category", "name").Asc()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var feeds []models.FeedSource
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// DistinctActiveNames returns the names of all active feed sources.
func (db *DB) DistinctActiveNames(ctx context.Context) ([]string, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("DISTINCT name").From("feeds")
	sb.Where(sb.Equal("active", 1))
	sb.OrderBy("name").Asc()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *DB) GetFeed(ctx context.Context, id string) (models.FeedSource, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(feedColumns).From("feeds")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	feed, err := scanFeed(db.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.FeedSource{}, ErrNotFound
	} else if err != nil {
		return models.FeedSource{}, fmt.Errorf("query error: %w", err)
	}
	return feed, nil
}

// FeedExists reports whether a feed with the given name or URL is already
// registered.
func (db *DB) FeedExists(ctx context.Context, name, url string) (bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("count(*)").From("feeds")
	sb.Where(sb.Or(sb.Equal("name", name), sb.Equal("url", url)))

	query, args := sb.Build()
	var count int
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return count > 0, nil
}

func (db *DB) CreateFeed(ctx context.Context, feed models.FeedSource) (models.FeedSource, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if feed.ID == "" {
		feed.ID = uuid.New().String()
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = time.Now()
	}

	log.WithFields(log.Fields{
		"name":     feed.Name,
		"url":      feed.URL,
		"category": feed.Category,
	}).Info("Creating feed source")

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("feeds")
	ib.Cols("id", "name", "url", "category", "description", "active", "created_at")
	ib.Values(feed.ID, feed.Name, feed.URL, feed.Category, feed.Description, boolToInt(feed.Active), formatTime(feed.CreatedAt))

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.FeedSource{}, fmt.Errorf("insert error: %w", err)
	}
	return feed, nil
}

// UpdateFeed overwrites all mutable fields of the feed row.
func (db *DB) UpdateFeed(ctx context.Context, feed models.FeedSource) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update("feeds")
	ub.Set(
		ub.Assign("name", feed.Name),
		ub.Assign("url", feed.URL),
		ub.Assign("category", feed.Category),
		ub.Assign("description", feed.Description),
		ub.Assign("active", boolToInt(feed.Active)),
	)
	ub.Where(ub.Equal("id", feed.ID))

	query, args := ub.Build()
	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteFeed(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delb := sqlbuilder.SQLite.NewDeleteBuilder()
	delb.DeleteFrom("feeds")
	delb.Where(delb.Equal("id", id))

	query, args := delb.Build()
	res, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedFeeds inserts the given feed sources, skipping names that already
// exist. Returns the number of newly inserted rows.
func (db *DB) SeedFeeds(ctx context.Context, feeds []models.FeedSource) (int, error) {
	inserted := 0
	for _, feed := range feeds {
		exists, err := db.FeedExists(ctx, feed.Name, feed.URL)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		feed.Active = true
		if _, err := db.CreateFeed(ctx, feed); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
