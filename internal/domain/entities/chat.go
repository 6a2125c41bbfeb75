package entities

import "time"

// ChatMessage is one message relayed from an external live chat
type ChatMessage struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	AuthorImage string    `json:"authorImage,omitempty"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"publishedAt"`
	IsModerator bool      `json:"isModerator,omitempty"`
	IsOwner     bool      `json:"isOwner,omitempty"`
}

// FeedStatus describes the external feed relay
type FeedStatus struct {
	Running    bool      `json:"running"`
	ChatID     string    `json:"liveChatId,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	Received   int       `json:"received"`
	LastError  string    `json:"lastError,omitempty"`
	IntervalMs int64     `json:"intervalMs"`
}
