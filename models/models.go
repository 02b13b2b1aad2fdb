package models

import "time"

// FeedSource is a configured external feed endpoint. Long-lived reference
// data, read-only during request handling.
type FeedSource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NormalizedItem is a feed entry reshaped into a consistent record
// regardless of the original feed format. Items are ephemeral and
// recomputed on every request.
type NormalizedItem struct {
	GUID           string    `json:"guid"`
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	ContentText    string    `json:"content_text"`
	DatePublished  time.Time `json:"date_published"`
	Author         string    `json:"author"`
	Image          string    `json:"image,omitempty"`
	Categories     []string  `json:"categories"`
	Source         string    `json:"source"`
	SourceCategory string    `json:"source_category"`
}

// User holds account data plus up to three ordered preference strings
// referencing feed source names.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Preferences  []string  `json:"preferences"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewsPage is the paginated /news response envelope.
type NewsPage struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	PageSize   int              `json:"pageSize"`
	Data       []NormalizedItem `json:"data"`
	Message    string           `json:"message,omitempty"`
}

// PersonalizedNews is the /news/personalized response envelope.
type PersonalizedNews struct {
	Count        int              `json:"count"`
	Personalized bool             `json:"personalized"`
	Preferences  []string         `json:"preferences"`
	Items        []NormalizedItem `json:"items"`
	Message      string           `json:"message,omitempty"`
}

// FeedSample is returned by POST /feeds/test for a candidate URL.
type FeedSample struct {
	Title       string           `json:"title"`
	ItemCount   int              `json:"itemCount"`
	SampleItems []NormalizedItem `json:"sampleItems"`
}
