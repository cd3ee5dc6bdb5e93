// Package twitch fetches streaming audience metrics from the Twitch Helix API.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/signalfox/gamepulse/internal/config"
)

// Client provides access to Twitch Helix API
type Client struct {
	apiBaseURL string
	clientID   string
	token      string
	httpClient *http.Client
}

// StreamStats holds a point-in-time aggregate of live streams for a game
type StreamStats struct {
	GameID      string
	ViewerCount int
	StreamCount int
	TopChannels []string
	CollectedAt time.Time
}

type streamsResponse struct {
	Data []struct {
		UserName    string `json:"user_name"`
		ViewerCount int    `json:"viewer_count"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// NewClient creates a new Twitch client. The token is an app access token
// obtained out of band.
func NewClient(cfg config.TwitchConfig, token string) *Client {
	return &Client{
		apiBaseURL: cfg.APIBaseURL,
		clientID:   cfg.ClientID,
		token:      token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchStreamStats aggregates the current live streams for a game into a
// single viewer and stream count snapshot.
func (c *Client) FetchStreamStats(ctx context.Context, gameID string) (StreamStats, error) {
	stats := StreamStats{GameID: gameID, CollectedAt: time.Now()}
	cursor := ""

	// Helix pages at 100 streams; three pages covers all but the very
	// largest categories.
	for page := 0; page < 3; page++ {
		u := fmt.Sprintf("%s/streams?game_id=%s&first=100", c.apiBaseURL, url.QueryEscape(gameID))
		if cursor != "" {
			u += "&after=" + url.QueryEscape(cursor)
		}

		var sr streamsResponse
		if err := c.getJSON(ctx, u, &sr); err != nil {
			return StreamStats{}, fmt.Errorf("failed to fetch streams: %w", err)
		}

		for _, s := range sr.Data {
			stats.ViewerCount += s.ViewerCount
			stats.StreamCount++
			if len(stats.TopChannels) < 5 {
				stats.TopChannels = append(stats.TopChannels, s.UserName)
			}
		}

		cursor = sr.Pagination.Cursor
		if cursor == "" || len(sr.Data) == 0 {
			break
		}
	}

	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
