package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trendscout/internal/config"
)

// AnthropicProvider is the backup campaign writer behind OpenAI.
type AnthropicProvider struct {
	Cfg         config.ProviderConfig
	MaxTokens   int
	Temperature float64
	MaxAngles   int
	Timeout     time.Duration

	client *anthropic.Client
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ensureClient() (*anthropic.Client, *ProviderError) {
	if p.client != nil {
		return p.client, nil
	}
	key := strings.TrimSpace(os.Getenv(strings.TrimSpace(p.Cfg.APIKeyEnv)))
	if key == "" {
		return nil, classify(p.Name(), ErrKindAuth, fmt.Errorf("api key env %q not set", p.Cfg.APIKeyEnv))
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if strings.TrimSpace(p.Cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(p.Cfg.BaseURL)))
	}
	client := anthropic.NewClient(opts...)
	p.client = &client
	return p.client, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, trend TrendContext, maxCampaigns int) ([]Draft, error) {
	client, perr := p.ensureClient()
	if perr != nil {
		return nil, perr
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	resp, err := client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.Cfg.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(p.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(trend, maxCampaigns, p.MaxAngles))),
		},
	})
	if err != nil {
		return nil, p.classifyError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, classify(p.Name(), ErrKindBadResponse, fmt.Errorf("no text content in response"))
	}

	drafts, err := parseDrafts(text.String())
	if err != nil {
		return nil, classify(p.Name(), ErrKindBadResponse, err)
	}
	return drafts, nil
}

func (p *AnthropicProvider) classifyError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return classify(p.Name(), ErrKindTimeout, err)
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 401 || apierr.StatusCode == 403:
			return classify(p.Name(), ErrKindAuth, err)
		case apierr.StatusCode == 429:
			return classify(p.Name(), ErrKindRateLimited, err)
		case apierr.StatusCode >= 500:
			return classify(p.Name(), ErrKindServer, err)
		default:
			return classify(p.Name(), ErrKindBadResponse, err)
		}
	}
	return classify(p.Name(), ErrKindServer, err)
}
