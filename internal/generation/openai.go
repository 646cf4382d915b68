package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"trendscout/internal/config"
)

// OpenAIProvider is the primary campaign writer.
type OpenAIProvider struct {
	Cfg         config.ProviderConfig
	MaxTokens   int
	Temperature float64
	MaxAngles   int
	Timeout     time.Duration

	client *openai.Client
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) ensureClient() (*openai.Client, *ProviderError) {
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
	client := openai.NewClient(opts...)
	p.client = &client
	return p.client, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, trend TrendContext, maxCampaigns int) ([]Draft, error) {
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

	resp, err := client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.Cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(trend, maxCampaigns, p.MaxAngles)),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(p.Temperature),
	})
	if err != nil {
		return nil, p.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, classify(p.Name(), ErrKindBadResponse, fmt.Errorf("empty choices"))
	}

	drafts, err := parseDrafts(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, classify(p.Name(), ErrKindBadResponse, err)
	}
	return drafts, nil
}

// Chat runs a one-shot completion outside the campaign flow, for callers
// that need a short classification answer. Temperature is pinned low so the
// same content keeps getting the same answer.
func (p *OpenAIProvider) Chat(ctx context.Context, system, user string) (string, error) {
	client, perr := p.ensureClient()
	if perr != nil {
		return "", perr
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.Cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(64),
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return "", p.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", classify(p.Name(), ErrKindBadResponse, fmt.Errorf("empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) classifyError(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return classify(p.Name(), ErrKindTimeout, err)
	}
	var apierr *openai.Error
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
