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

const userColumns = "id, username, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	var createdAt string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		return models.User{}, err
	}
	user.CreatedAt = parseTime(createdAt)
	return user, nil
}

func (db *DB) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	log.WithFields(log.Fields{
		"username":    user.Username,
		"preferences": user.Preferences,
	}).Info("Creating user")

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("users")
	ib.Cols("id", "username", "email", "password_hash", "created_at")
	ib.Values(user.ID, user.Username, user.Email, user.PasswordHash, formatTime(user.CreatedAt))

	query, args := ib.Build()
	if _, err := db.db.ExecContext(ctx, query, args...); err != nil {
		return models.User{}, fmt.Errorf("insert error: %w", err)
	}

	if len(user.Preferences) > 0 {
		if err := db.SetPreferences(ctx, user.ID, user.Preferences); err != nil {
			return models.User{}, err
		}
	}
	return user, nil
}

func (db *DB) GetUser(ctx context.Context, id string) (models.User, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(userColumns).From("users")
	sb.Where(sb.Equal("id", id))
	return db.getUser(ctx, sb)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(userColumns).From("users")
	sb.Where(sb.Equal("username", username))
	return db.getUser(ctx, sb)
}

func (db *DB) getUser(ctx context.Context, sb *sqlbuilder.SelectBuilder) (models.User, error) {
	query, args := sb.Build()
	user, err := scanUser(db.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	} else if err != nil {
		return models.User{}, fmt.Errorf("query error: %w", err)
	}

	user.Preferences, err = db.GetPreferences(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// UserExists reports whether a user with the given username or email is
// already registered.
func (db *DB) UserExists(ctx context.Context, username, email string) (bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("count(*)").From("users")
	sb.Where(sb.Or(sb.Equal("username", username), sb.Equal("email", email)))

	query, args := sb.Build()
	var count int
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return count > 0, nil
}

// GetPreferences returns the user's preference strings in stored order.
func (db *DB) GetPreferences(ctx context.Context, userID string) ([]string, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("name").From("user_preferences")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("position").Asc()

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	prefs := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		prefs = append(prefs, name)
	}
	return prefs, rows.Err()
}

// SetPreferences replaces the user's preference list atomically.
func (db *DB) SetPreferences(ctx context.Context, userID string, prefs []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_preferences WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	for i, name := range prefs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_preferences (user_id, position, name) VALUES (?, ?, ?)",
			userID, i, name,
		); err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
	}
	return tx.Commit()
}
