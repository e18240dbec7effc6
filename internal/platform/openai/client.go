package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/yungbote/painlens-backend/internal/platform/envutil"
	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

type Client interface {
	// Structured outputs (json_schema)
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)

	// Plain text (no schema)
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type client struct {
	log         *logger.Logger
	sdk         openai.Client
	model       string
	temperature float64
	maxOutput   int64
	maxRetries  int
	backoff     []time.Duration
}

// NewClient reads OPENAI_* settings from the environment. Retries are handled here rather
// than by the SDK so rate limits and server errors back off on our schedule.
func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := envutil.String("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second)),
	}
	if baseURL := envutil.String("OPENAI_BASE_URL", ""); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	return &client{
		log:         log.With("service", "OpenAIClient"),
		sdk:         openai.NewClient(opts...),
		model:       envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		temperature: envutil.Float("OPENAI_TEMPERATURE", 0.2),
		maxOutput:   int64(envutil.Int("OPENAI_MAX_OUTPUT_TOKENS", 2000)),
		maxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 3),
		backoff:     []time.Duration{2 * time.Second, 10 * time.Second, 30 * time.Second},
	}, nil
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}

	params := c.baseParams(system, user)
	params.Text = responses.ResponseTextConfigParam{
		Format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openai.Bool(true),
				Type:   "json_schema",
			},
		},
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return nil, fmt.Errorf("no output_text found in response")
	}

	var obj map[string]any
	if err := decodeModelJSON(text, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	resp, err := c.callWithRetry(ctx, c.baseParams(system, user))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) baseParams(system, user string) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutput),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(user, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if strings.TrimSpace(system) != "" {
		params.Instructions = openai.String(system)
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	return params
}

func (c *client) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.sdk.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) || attempt == attempts-1 {
			break
		}
		wait := c.backoff[min(attempt, len(c.backoff)-1)]
		c.log.Warn("openai request failed; retrying", "attempt", attempt+1, "wait", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}

// decodeModelJSON tolerates a fenced ```json block around the payload.
func decodeModelJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return json.Unmarshal([]byte(strings.TrimSpace(text)), out)
}
