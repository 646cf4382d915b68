package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendscout/internal/config"
	"trendscout/internal/models"
)

// GoogleTrendsCollector pulls the daily trending searches RSS feed. Volume
// comes from the approx_traffic field; velocity is derived from feed rank
// since the feed itself carries no history.
type GoogleTrendsCollector struct {
	HTTP   *http.Client
	Logger *zap.Logger
	Cache  *Cache

	Cfg config.GoogleTrendsConfig

	mu        sync.Mutex
	lastPoll  time.Time
	lastError string
	status    string
}

func (c *GoogleTrendsCollector) Name() string { return "google_trends" }

func (c *GoogleTrendsCollector) Health() Health {
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
		SourceType: "rss_feed",
		Endpoint:   c.Cfg.Endpoint,
		Enabled:    c.Cfg.Enabled,
		Status:     status,
		LastError:  c.lastError,
		LastPollAt: c.lastPoll,
	}
}

type trendsFeed struct {
	Channel struct {
		Items []trendsFeedItem `xml:"item"`
	} `xml:"channel"`
}

type trendsFeedItem struct {
	Title         string `xml:"title"`
	ApproxTraffic string `xml:"approx_traffic"`
	Link          string `xml:"link"`
	PubDate       string `xml:"pubDate"`
	NewsItems     []struct {
		Title   string `xml:"news_item_title"`
		Snippet string `xml:"news_item_snippet"`
		URL     string `xml:"news_item_url"`
	} `xml:"news_item"`
}

func (c *GoogleTrendsCollector) Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error) {
	now := time.Now().UTC()

	raw, err := c.fetchFeed(ctx, cycleDate)
	if err != nil {
		c.setHealth(now, HealthFailed, err.Error())
		return nil, err
	}

	var feed trendsFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		c.setHealth(now, HealthFailed, err.Error())
		return nil, fmt.Errorf("google trends: parse feed: %w", err)
	}

	maxTopics := c.Cfg.MaxTopics
	if maxTopics <= 0 {
		maxTopics = 20
	}
	items := feed.Channel.Items
	if len(items) > maxTopics {
		items = items[:maxTopics]
	}

	signals := make([]models.Signal, 0, len(items))
	for rank, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		urls := make([]string, 0, len(item.NewsItems)+1)
		if strings.TrimSpace(item.Link) != "" {
			urls = append(urls, strings.TrimSpace(item.Link))
		}
		description := ""
		for _, news := range item.NewsItems {
			if u := strings.TrimSpace(news.URL); u != "" {
				urls = append(urls, u)
			}
			if description == "" {
				description = strings.TrimSpace(news.Snippet)
			}
		}
		signals = append(signals, models.Signal{
			SourceID:    c.Name(),
			RawLabel:    title,
			ObservedAt:  now,
			RawVolume:   parseApproxTraffic(item.ApproxTraffic),
			RawVelocity: rankVelocity(rank, len(items)),
			Category:    "general",
			Description: description,
			Keywords:    []string{strings.ToLower(title)},
			URLs:        urls,
			RawMetadata: map[string]any{
				"rank":           rank + 1,
				"approx_traffic": item.ApproxTraffic,
				"pub_date":       item.PubDate,
			},
		})
	}

	c.setHealth(now, HealthOK, "")
	return signals, nil
}

func (c *GoogleTrendsCollector) fetchFeed(ctx context.Context, cycleDate time.Time) ([]byte, error) {
	cacheKey := "trendscout:google_trends:" + c.Cfg.Geo + ":" + cycleDate.Format("2006-01-02")
	if raw, ok := c.Cache.Get(ctx, cacheKey); ok {
		return raw, nil
	}

	timeout := c.Cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.Cfg.Endpoint
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	url += sep + "geo=" + strings.TrimSpace(c.Cfg.Geo)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpc := c.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google trends: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("google trends: http %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	c.Cache.Set(ctx, cacheKey, raw)
	return raw, nil
}

func (c *GoogleTrendsCollector) setHealth(ts time.Time, status, errStr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = ts
	c.status = status
	c.lastError = errStr
}

// parseApproxTraffic turns feed values like "200,000+" or "2M+" into a
// search count. Unparseable values fall back to a small non-zero volume so
// the topic still registers.
func parseApproxTraffic(raw string) int64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "+")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 1000
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(cleaned, "M"):
		mult = 1_000_000
		cleaned = strings.TrimSuffix(cleaned, "M")
	case strings.HasSuffix(cleaned, "K"):
		mult = 1_000
		cleaned = strings.TrimSuffix(cleaned, "K")
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || val <= 0 {
		return 1000
	}
	return int64(val * float64(mult))
}

// rankVelocity maps feed position to a relative velocity: top of the feed
// reads as rising hard, bottom as barely moving.
func rankVelocity(rank, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(total-rank) / float64(total)
}
