package collector

import (
	"context"
	"encoding/json"
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

// RedditCollector reads the public hot listing of a set of subreddits. Each
// subreddit is fetched independently; one failing subreddit degrades the
// source instead of failing it.
type RedditCollector struct {
	HTTP   *http.Client
	Logger *zap.Logger
	Cache  *Cache

	Cfg config.RedditConfig

	mu        sync.Mutex
	lastPoll  time.Time
	lastError string
	status    string
}

func (c *RedditCollector) Name() string { return "reddit" }

func (c *RedditCollector) Health() Health {
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

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Subreddit   string  `json:"subreddit"`
				Score       int64   `json:"score"`
				NumComments int64   `json:"num_comments"`
				UpvoteRatio float64 `json:"upvote_ratio"`
				Permalink   string  `json:"permalink"`
				URL         string  `json:"url"`
				CreatedUTC  float64 `json:"created_utc"`
				Stickied    bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *RedditCollector) Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error) {
	now := time.Now().UTC()

	subs := cleanSubreddits(c.Cfg.Subreddits)
	if len(subs) == 0 {
		c.setHealth(now, HealthDegraded, "no subreddits configured")
		return nil, nil
	}

	var signals []models.Signal
	var errs []string
	for i, sub := range subs {
		if i > 0 && c.Cfg.RequestPause > 0 {
			select {
			case <-ctx.Done():
				return signals, ctx.Err()
			case <-time.After(c.Cfg.RequestPause):
			}
		}
		subSignals, err := c.fetchSubreddit(ctx, cycleDate, sub, now)
		if err != nil {
			errs = append(errs, fmt.Sprintf("r/%s: %v", sub, err))
			if c.Logger != nil {
				c.Logger.Warn("reddit subreddit fetch failed", zap.String("subreddit", sub), zap.Error(err))
			}
			continue
		}
		signals = append(signals, subSignals...)
	}

	switch {
	case len(errs) == 0:
		c.setHealth(now, HealthOK, "")
	case len(signals) > 0:
		c.setHealth(now, HealthDegraded, strings.Join(errs, "; "))
	default:
		err := fmt.Errorf("reddit: all subreddits failed: %s", strings.Join(errs, "; "))
		c.setHealth(now, HealthFailed, err.Error())
		return nil, err
	}
	return signals, nil
}

func (c *RedditCollector) fetchSubreddit(ctx context.Context, cycleDate time.Time, sub string, now time.Time) ([]models.Signal, error) {
	raw, err := c.fetchListing(ctx, cycleDate, sub)
	if err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	limit := c.Cfg.PostsPerSub
	if limit <= 0 {
		limit = 5
	}
	signals := make([]models.Signal, 0, limit)
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || strings.TrimSpace(post.Title) == "" {
			continue
		}
		urls := []string{}
		if p := strings.TrimSpace(post.Permalink); p != "" {
			urls = append(urls, "https://www.reddit.com"+p)
		}
		description := strings.TrimSpace(post.Selftext)
		if len(description) > 500 {
			description = description[:500]
		}
		signals = append(signals, models.Signal{
			SourceID:    c.Name(),
			RawLabel:    strings.TrimSpace(post.Title),
			ObservedAt:  now,
			RawVolume:   post.Score + post.NumComments*2,
			RawVelocity: redditVelocity(post.Score, post.CreatedUTC, now),
			Category:    categoryForSubreddit(post.Subreddit),
			Description: description,
			Keywords:    headlineKeywords(post.Title),
			URLs:        urls,
			RawMetadata: map[string]any{
				"subreddit":    post.Subreddit,
				"score":        post.Score,
				"num_comments": post.NumComments,
				"upvote_ratio": post.UpvoteRatio,
			},
		})
		if len(signals) >= limit {
			break
		}
	}
	return signals, nil
}

func (c *RedditCollector) fetchListing(ctx context.Context, cycleDate time.Time, sub string) ([]byte, error) {
	cacheKey := "trendscout:reddit:" + sub + ":" + cycleDate.Format("2006-01-02")
	if raw, ok := c.Cache.Get(ctx, cacheKey); ok {
		return raw, nil
	}

	timeout := c.Cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := c.Cfg.PostsPerSub
	if limit <= 0 {
		limit = 5
	}
	// Fetch a little extra so stickied posts can be skipped.
	url := strings.TrimRight(c.Cfg.Endpoint, "/") + "/r/" + sub + "/hot.json?limit=" + strconv.Itoa(limit+5)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	ua := strings.TrimSpace(c.Cfg.UserAgent)
	if ua == "" {
		ua = "trendscout/1.0"
	}
	req.Header.Set("User-Agent", ua)

	httpc := c.HTTP
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	c.Cache.Set(ctx, cacheKey, raw)
	return raw, nil
}

func (c *RedditCollector) setHealth(ts time.Time, status, errStr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = ts
	c.status = status
	c.lastError = errStr
}

// redditVelocity is score per hour since posting, squashed to 0..1.
func redditVelocity(score int64, createdUTC float64, now time.Time) float64 {
	if createdUTC <= 0 {
		return 0
	}
	ageHours := now.Sub(time.Unix(int64(createdUTC), 0)).Hours()
	if ageHours < 0.5 {
		ageHours = 0.5
	}
	perHour := float64(score) / ageHours
	v := perHour / 1000.0
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

func categoryForSubreddit(sub string) string {
	switch strings.ToLower(strings.TrimSpace(sub)) {
	case "news", "worldnews", "politics":
		return "news"
	case "technology", "programming", "science":
		return "technology"
	case "entertainment", "movies", "television", "music":
		return "entertainment"
	case "sports", "nba", "soccer", "nfl":
		return "sports"
	default:
		return "general"
	}
}

func cleanSubreddits(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "r/")
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
