package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendscout/internal/config"
	"trendscout/internal/models"
)

// NewsAPICollector pulls top headlines from newsapi.org. Without an API key
// the collector reports itself degraded and sits the cycle out instead of
// failing it.
type NewsAPICollector struct {
	HTTP   *http.Client
	Logger *zap.Logger
	Cache  *Cache

	Cfg config.NewsAPIConfig

	mu        sync.Mutex
	lastPoll  time.Time
	lastError string
	status    string
}

func (c *NewsAPICollector) Name() string { return "newsapi" }

func (c *NewsAPICollector) Health() Health {
	if c == nil {
		return Health{Status: HealthUnknown}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	if status == "" {
		status = HealthUnknown
	}
	return Health{
		SourceType: "api_poll",
		Endpoint:   c.Cfg.Endpoint,
		Enabled:    c.Cfg.Enabled,
		Status:     status,
		LastError:  c.lastError,
		LastPollAt: c.lastPoll,
	}
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (c *NewsAPICollector) Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error) {
	now := time.Now().UTC()

	apiKey := strings.TrimSpace(os.Getenv(strings.TrimSpace(c.Cfg.APIKeyEnv)))
	if apiKey == "" {
		c.setHealth(now, HealthDegraded, "api key not configured")
		return nil, nil
	}

	raw, err := c.fetchHeadlines(ctx, cycleDate, apiKey)
	if err != nil {
		c.setHealth(now, HealthFailed, err.Error())
		return nil, err
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.setHealth(now, HealthFailed, err.Error())
		return nil, fmt.Errorf("newsapi: parse response: %w", err)
	}
	if parsed.Status != "ok" {
		err := fmt.Errorf("newsapi: status %q", parsed.Status)
		c.setHealth(now, HealthFailed, err.Error())
		return nil, err
	}

	signals := make([]models.Signal, 0, len(parsed.Articles))
	for rank, article := range parsed.Articles {
		title := strings.TrimSpace(article.Title)
		if title == "" || strings.EqualFold(title, "[Removed]") {
			continue
		}
		urls := []string{}
		if u := strings.TrimSpace(article.URL); u != "" {
			urls = append(urls, u)
		}
		signals = append(signals, models.Signal{
			SourceID:    c.Name(),
			RawLabel:    title,
			ObservedAt:  now,
			RawVolume:   headlineVolume(parsed.TotalResults, rank),
			RawVelocity: rankVelocity(rank, len(parsed.Articles)),
			Category:    "news",
			Description: strings.TrimSpace(article.Description),
			Keywords:    headlineKeywords(title),
			URLs:        urls,
			RawMetadata: map[string]any{
				"outlet":       article.Source.Name,
				"published_at": article.PublishedAt,
				"rank":         rank + 1,
			},
		})
	}

	c.setHealth(now, HealthOK, "")
	return signals, nil
}

func (c *NewsAPICollector) fetchHeadlines(ctx context.Context, cycleDate time.Time, apiKey string) ([]byte, error) {
	cacheKey := "trendscout:newsapi:" + c.Cfg.Country + ":" + cycleDate.Format("2006-01-02")
	if raw, ok := c.Cache.Get(ctx, cacheKey); ok {
		return raw, nil
	}

	timeout := c.Cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pageSize := c.Cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	params := url.Values{}
	params.Set("country", c.Cfg.Country)
	params.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.Cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", apiKey)

	httpc := c.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("newsapi: http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	c.Cache.Set(ctx, cacheKey, raw)
	return raw, nil
}

func (c *NewsAPICollector) setHealth(ts time.Time, status, errStr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = ts
	c.status = status
	c.lastError = errStr
}

// headlineVolume approximates reach from the total result count, decayed by
// headline rank.
func headlineVolume(totalResults, rank int) int64 {
	base := int64(totalResults) * 100
	if base <= 0 {
		base = 5000
	}
	decay := 1.0 - float64(rank)*0.03
	if decay < 0.2 {
		decay = 0.2
	}
	return int64(float64(base) * decay)
}

func headlineKeywords(title string) []string {
	fields := strings.Fields(strings.ToLower(title))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?:;\"'()[]")
		if len(f) < 4 {
			continue
		}
		out = append(out, f)
		if len(out) >= 8 {
			break
		}
	}
	return out
}
