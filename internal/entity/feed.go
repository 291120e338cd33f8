package entity

import (
	"time"

	"github.com/google/uuid"
)

// FeedItem is a single image in the feed.
type FeedItem struct {
	ID          uuid.UUID `json:"id"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	// Image URL.
	URL string `json:"image"`
}

// Comment is a user comment on an image.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
}
