package model

import "time"

// Notification types. Only likes generate notifications today; the column is
// a string so new types (comments, follows) don't need a migration.
const (
	NotificationTypeLike = "like"
)

// Notification tells a user that someone interacted with one of their
// snippets. Actor is who triggered it; Snippet is what they touched.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`

	Actor   Author          `json:"actor"`
	Snippet NotificationRef `json:"snippet"`
}

// NotificationRef is the minimal snippet reference carried by a
// notification — enough to render a link without another query.
type NotificationRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}
