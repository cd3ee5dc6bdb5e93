// Package steam fetches game telemetry from the Steam Web and storefront APIs.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/signalfox/gamepulse/internal/config"
	"github.com/signalfox/gamepulse/internal/models"
)

// Client provides access to Steam Web API and storefront endpoints
type Client struct {
	apiBaseURL     string
	storeBaseURL   string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// ReviewSummary holds aggregate review counts and playtime statistics
// for an app, computed over the fetched batch.
type ReviewSummary struct {
	TotalPositive int
	TotalNegative int
	TotalReviews  int

	LifetimeAvgMinutes    float64
	LifetimeMedianMinutes float64
	RecentAvgMinutes      float64
	RecentMedianMinutes   float64
}

// AppDetails holds storefront metadata for an app
type AppDetails struct {
	Name            string
	PriceCents      int
	InitialCents    int
	DiscountPercent float64
	OnSale          bool
}

type playerCountResponse struct {
	Response struct {
		PlayerCount int `json:"player_count"`
		Result      int `json:"result"`
	} `json:"response"`
}

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		TotalPositive int `json:"total_positive"`
		TotalNegative int `json:"total_negative"`
		TotalReviews  int `json:"total_reviews"`
	} `json:"query_summary"`
	Reviews []struct {
		Review  string `json:"review"`
		VotedUp bool   `json:"voted_up"`
		VotesUp int    `json:"votes_up"`
		Author  struct {
			PlaytimeForever  int `json:"playtime_forever"`
			PlaytimeLastTwoW int `json:"playtime_last_two_weeks"`
		} `json:"author"`
	} `json:"reviews"`
}

type appDetailsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Name          string `json:"name"`
		IsFree        bool   `json:"is_free"`
		PriceOverview struct {
			Initial         int `json:"initial"`
			Final           int `json:"final"`
			DiscountPercent int `json:"discount_percent"`
		} `json:"price_overview"`
	} `json:"data"`
}

type newsResponse struct {
	AppNews struct {
		NewsItems []struct {
			Date int64 `json:"date"`
		} `json:"newsitems"`
	} `json:"appnews"`
}

// NewClient creates a new Steam client
func NewClient(cfg config.SteamConfig) *Client {
	return &Client{
		apiBaseURL:   cfg.APIBaseURL,
		storeBaseURL: cfg.StoreBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchPlayerCount retrieves the current concurrent player count for an app
func (c *Client) FetchPlayerCount(ctx context.Context, appID string) (int, error) {
	u := fmt.Sprintf("%s/ISteamUserStats/GetNumberOfCurrentPlayers/v1/?appid=%s", c.apiBaseURL, url.QueryEscape(appID))

	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch player count: %w", err)
	}
	defer resp.Body.Close()

	var pc playerCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&pc); err != nil {
		return 0, fmt.Errorf("failed to decode player count: %w", err)
	}
	if pc.Response.Result != 1 {
		return 0, fmt.Errorf("player count unavailable for app %s", appID)
	}

	return pc.Response.PlayerCount, nil
}

// FetchReviews retrieves a batch of recent reviews plus aggregate totals
func (c *Client) FetchReviews(ctx context.Context, appID string, batchSize int) ([]models.ReviewRecord, ReviewSummary, error) {
	u := fmt.Sprintf("%s/appreviews/%s?json=1&language=all&filter=recent&num_per_page=%d",
		c.storeBaseURL, url.PathEscape(appID), batchSize)

	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return nil, ReviewSummary{}, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	defer resp.Body.Close()

	var rr reviewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, ReviewSummary{}, fmt.Errorf("failed to decode reviews: %w", err)
	}
	if rr.Success != 1 {
		return nil, ReviewSummary{}, fmt.Errorf("review query failed for app %s", appID)
	}

	reviews := make([]models.ReviewRecord, 0, len(rr.Reviews))
	lifetime := make([]float64, 0, len(rr.Reviews))
	recent := make([]float64, 0, len(rr.Reviews))
	for _, r := range rr.Reviews {
		reviews = append(reviews, models.ReviewRecord{
			Text:          r.Review,
			Recommended:   r.VotedUp,
			PlaytimeHours: float64(r.Author.PlaytimeForever) / 60.0,
			HelpfulVotes:  r.VotesUp,
		})
		lifetime = append(lifetime, float64(r.Author.PlaytimeForever))
		recent = append(recent, float64(r.Author.PlaytimeLastTwoW))
	}

	summary := ReviewSummary{
		TotalPositive:         rr.QuerySummary.TotalPositive,
		TotalNegative:         rr.QuerySummary.TotalNegative,
		TotalReviews:          rr.QuerySummary.TotalReviews,
		LifetimeAvgMinutes:    mean(lifetime),
		LifetimeMedianMinutes: median(lifetime),
		RecentAvgMinutes:      mean(recent),
		RecentMedianMinutes:   median(recent),
	}

	return reviews, summary, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// FetchAppDetails retrieves storefront metadata including pricing
func (c *Client) FetchAppDetails(ctx context.Context, appID string) (AppDetails, error) {
	u := fmt.Sprintf("%s/api/appdetails?appids=%s", c.storeBaseURL, url.QueryEscape(appID))

	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return AppDetails{}, fmt.Errorf("failed to fetch app details: %w", err)
	}
	defer resp.Body.Close()

	// The storefront keys the response by app ID
	var envelope map[string]appDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return AppDetails{}, fmt.Errorf("failed to decode app details: %w", err)
	}

	entry, ok := envelope[appID]
	if !ok || !entry.Success {
		return AppDetails{}, fmt.Errorf("app details unavailable for app %s", appID)
	}

	return AppDetails{
		Name:            entry.Data.Name,
		PriceCents:      entry.Data.PriceOverview.Final,
		InitialCents:    entry.Data.PriceOverview.Initial,
		DiscountPercent: float64(entry.Data.PriceOverview.DiscountPercent),
		OnSale:          entry.Data.PriceOverview.DiscountPercent > 0,
	}, nil
}

// FetchNewsCount counts news items published for an app within the window
func (c *Client) FetchNewsCount(ctx context.Context, appID string, since time.Time) (int, error) {
	u := fmt.Sprintf("%s/ISteamNews/GetNewsForApp/v2/?appid=%s&count=50&maxlength=1", c.apiBaseURL, url.QueryEscape(appID))

	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	var nr newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return 0, fmt.Errorf("failed to decode news: %w", err)
	}

	count := 0
	for _, item := range nr.AppNews.NewsItems {
		if time.Unix(item.Date, 0).After(since) {
			count++
		}
	}

	return count, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, u string) (*http.Response, error) {
	retries := c.maxRetries
	if retries < 1 {
		retries = 1
	}
	var lastErr error

	for i := 0; i < retries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !sleepCtx(ctx, time.Duration(i+1)*c.retryDelayBase) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if !sleepCtx(ctx, time.Duration(i+1)*c.retryDelayBase) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sleepCtx waits for d or until the context is cancelled. It reports
// whether the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
