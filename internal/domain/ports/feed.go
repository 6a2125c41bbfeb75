package ports

import (
	"context"
	"time"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// FeedPage is one poll result from an external chat source
type FeedPage struct {
	Messages      []entities.ChatMessage
	NextPageToken string
	// PollInterval is the delay the source asks for before the next
	// fetch. Zero means no preference.
	PollInterval time.Duration
}

// FeedSource fetches pages of messages from an external live chat
type FeedSource interface {
	Fetch(ctx context.Context, chatID, pageToken string) (*FeedPage, error)
}

// FeedRelay polls a FeedSource and broadcasts what it finds
type FeedRelay interface {
	Start(ctx context.Context, chatID string) error
	Stop()
	Status() entities.FeedStatus
	Recent() []entities.ChatMessage
}
