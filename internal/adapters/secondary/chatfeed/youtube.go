package chatfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// ErrNotConfigured is returned when no API key is available
var ErrNotConfigured = errors.New("live chat source has no API key")

// maxErrorBody bounds how much of a failed response is kept in the error
const maxErrorBody = 512

// YouTubeSource reads messages from the YouTube Data API liveChatMessages endpoint
type YouTubeSource struct {
	client  ports.HTTPClient
	baseURL string
	apiKey  string
}

// NewYouTubeSource creates a source for the configured API root
func NewYouTubeSource(client ports.HTTPClient, config entities.FeedConfig) *YouTubeSource {
	return &YouTubeSource{
		client:  client,
		baseURL: config.GetBaseURL(),
		apiKey:  config.APIKey,
	}
}

type messageListResponse struct {
	NextPageToken         string        `json:"nextPageToken"`
	PollingIntervalMillis int64         `json:"pollingIntervalMillis"`
	Items                 []messageItem `json:"items"`
}

type messageItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Type               string    `json:"type"`
		PublishedAt        time.Time `json:"publishedAt"`
		DisplayMessage     string    `json:"displayMessage"`
		TextMessageDetails struct {
			MessageText string `json:"messageText"`
		} `json:"textMessageDetails"`
	} `json:"snippet"`
	AuthorDetails struct {
		DisplayName     string `json:"displayName"`
		ProfileImageURL string `json:"profileImageUrl"`
		IsChatModerator bool   `json:"isChatModerator"`
		IsChatOwner     bool   `json:"isChatOwner"`
	} `json:"authorDetails"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch retrieves the page of messages after pageToken
func (s *YouTubeSource) Fetch(ctx context.Context, chatID, pageToken string) (*ports.FeedPage, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("liveChatId", chatID)
	query.Set("part", "snippet,authorDetails")
	query.Set("key", s.apiKey)
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/liveChat/messages?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building live chat request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching live chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var body messageListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding live chat response: %w", err)
	}

	page := &ports.FeedPage{
		NextPageToken: body.NextPageToken,
		PollInterval:  time.Duration(body.PollingIntervalMillis) * time.Millisecond,
		Messages:      make([]entities.ChatMessage, 0, len(body.Items)),
	}
	for _, item := range body.Items {
		if msg, ok := toChatMessage(item); ok {
			page.Messages = append(page.Messages, msg)
		}
	}

	return page, nil
}

// toChatMessage keeps only events that carry text
func toChatMessage(item messageItem) (entities.ChatMessage, bool) {
	text := item.Snippet.TextMessageDetails.MessageText
	if text == "" {
		text = item.Snippet.DisplayMessage
	}
	if strings.TrimSpace(text) == "" {
		return entities.ChatMessage{}, false
	}

	return entities.ChatMessage{
		ID:          item.ID,
		Author:      item.AuthorDetails.DisplayName,
		AuthorImage: item.AuthorDetails.ProfileImageURL,
		Text:        text,
		PublishedAt: item.Snippet.PublishedAt,
		IsModerator: item.AuthorDetails.IsChatModerator,
		IsOwner:     item.AuthorDetails.IsChatOwner,
	}, true
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var parsed apiError
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("live chat API returned %d: %s", resp.StatusCode, parsed.Error.Message)
	}
	return fmt.Errorf("live chat API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

var _ ports.FeedSource = (*YouTubeSource)(nil)
