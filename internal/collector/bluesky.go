package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"trendscout/internal/config"
	"trendscout/internal/models"
)

// BlueskyCollector samples the Jetstream firehose for a bounded window and
// turns hashtag frequency into signals. It is the only streaming source;
// Fetch still presents it as a batch call by closing the socket when the
// sample window ends.
type BlueskyCollector struct {
	Logger *zap.Logger

	Cfg config.BlueskyConfig

	mu        sync.Mutex
	lastPoll  time.Time
	lastError string
	status    string
}

func (c *BlueskyCollector) Name() string { return "bluesky" }

func (c *BlueskyCollector) Health() Health {
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
		SourceType: "websocket_stream",
		Endpoint:   c.Cfg.URL,
		Enabled:    c.Cfg.Enabled,
		Status:     status,
		LastError:  c.lastError,
		LastPollAt: c.lastPoll,
	}
}

type jetstreamEvent struct {
	Kind   string `json:"kind"`
	Commit struct {
		Operation  string `json:"operation"`
		Collection string `json:"collection"`
		Record     struct {
			Text string `json:"text"`
		} `json:"record"`
	} `json:"commit"`
}

func (c *BlueskyCollector) Fetch(ctx context.Context, cycleDate time.Time) ([]models.Signal, error) {
	now := time.Now().UTC()

	window := c.Cfg.SampleWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	sampleCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	counts, postsSeen, err := c.sample(sampleCtx)
	if err != nil && postsSeen == 0 {
		c.setHealth(now, HealthFailed, err.Error())
		return nil, err
	}

	minMentions := c.Cfg.MinMentions
	if minMentions <= 0 {
		minMentions = 5
	}
	type tagCount struct {
		tag   string
		count int
	}
	ranked := make([]tagCount, 0, len(counts))
	for tag, count := range counts {
		if count < minMentions {
			continue
		}
		ranked = append(ranked, tagCount{tag: tag, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].tag < ranked[j].tag
	})
	maxTopics := c.Cfg.MaxTopics
	if maxTopics <= 0 {
		maxTopics = 20
	}
	if len(ranked) > maxTopics {
		ranked = ranked[:maxTopics]
	}

	signals := make([]models.Signal, 0, len(ranked))
	for rank, tc := range ranked {
		// Scale the window sample up to an hourly mention estimate.
		scale := float64(time.Hour) / float64(window)
		signals = append(signals, models.Signal{
			SourceID:    c.Name(),
			RawLabel:    tc.tag,
			ObservedAt:  now,
			RawVolume:   int64(float64(tc.count) * scale),
			RawVelocity: rankVelocity(rank, len(ranked)),
			Category:    "social",
			Keywords:    []string{strings.ToLower(tc.tag)},
			RawMetadata: map[string]any{
				"sample_mentions": tc.count,
				"sample_window_s": int(window.Seconds()),
				"posts_sampled":   postsSeen,
			},
		})
	}

	c.setHealth(now, HealthOK, "")
	return signals, nil
}

func (c *BlueskyCollector) sample(ctx context.Context) (map[string]int, int, error) {
	conn, _, err := websocket.Dial(ctx, c.Cfg.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("bluesky: dial jetstream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "sample complete")
	conn.SetReadLimit(1 << 20)

	counts := map[string]int{}
	postsSeen := 0
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			// The window deadline closes the socket; that is the normal exit.
			if ctx.Err() != nil {
				return counts, postsSeen, nil
			}
			return counts, postsSeen, fmt.Errorf("bluesky: read: %w", err)
		}
		var event jetstreamEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}
		if event.Kind != "commit" ||
			event.Commit.Operation != "create" ||
			event.Commit.Collection != "app.bsky.feed.post" {
			continue
		}
		text := event.Commit.Record.Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		postsSeen++
		for _, tag := range extractHashtags(text) {
			counts[tag]++
		}
	}
}

func (c *BlueskyCollector) setHealth(ts time.Time, status, errStr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = ts
	c.status = status
	c.lastError = errStr
}

func extractHashtags(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		tag := strings.TrimLeft(field, "#")
		tag = strings.TrimFunc(tag, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
		})
		if len(tag) < 3 || len(tag) > 50 {
			continue
		}
		out = append(out, strings.ToLower(tag))
	}
	return out
}
