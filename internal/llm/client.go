package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

var (
	// ErrUnreachable covers transport failures and server-side errors.
	// Callers may retry.
	ErrUnreachable = errors.New("llm service unreachable")
	// ErrRejected is returned for client-side HTTP errors such as a bad key.
	ErrRejected = errors.New("llm request rejected")
	// ErrMalformed is returned when the service answered with nothing usable.
	ErrMalformed = errors.New("llm response malformed")
)

const defaultTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// Client wraps an OpenAI-compatible chat completion endpoint.
type Client struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient constructs a client. Extra request options are appended after
// the configured ones, which lets tests swap the HTTP client.
func NewClient(cfg Config, logger zerolog.Logger, extra ...option.RequestOption) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	opts = append(opts, extra...)

	return &Client{
		client: openai.NewClient(opts...),
		model:  strings.TrimSpace(cfg.Model),
		logger: logger.With().Str("component", "llm").Logger(),
	}
}

// scriptPrompt asks for a narration-ready script without rewording the post.
const scriptPrompt = "Format the following Reddit post into a script for voice narration. " +
	"Do not change the wording or add anything new. " +
	"Keep the title at the start, followed by the post text. " +
	"Output only the formatted narration:\n\n"

// GenerateScript turns a post ("<title>\n<text>") into narration text.
func (c *Client) GenerateScript(ctx context.Context, post string) (string, error) {
	content, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(scriptPrompt + post),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	return content, nil
}

// NarratorResponse is the structured answer to the narrator classification.
type NarratorResponse struct {
	Gender string `json:"gender" jsonschema:"enum=male,enum=female" jsonschema_description:"Gender of the first-person narrator"`
}

var narratorSchema = generateSchema[NarratorResponse]()

func generateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

const narratorPrompt = `Analyze this Reddit story and determine the gender of the narrator/storyteller.

Story:
%s

Respond with ONLY one word: either "male" or "female"
Base your answer on:
- First-person pronouns and context
- References to relationships (my wife/husband, boyfriend/girlfriend)
- Any explicit mentions of gender
- Overall context clues`

// ClassifyNarrator returns the model's lowercase answer for the narrator's
// gender. The answer is not validated against the enum; callers decide how
// to read it.
func (c *Client) ClassifyNarrator(ctx context.Context, story string) (string, error) {
	content, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(narratorPrompt, story)),
		},
		Model: openai.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "narrator_gender",
					Description: openai.String("Gender of the story narrator"),
					Schema:      narratorSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("classify narrator: %w", err)
	}

	var parsed NarratorResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return "", fmt.Errorf("classify narrator: %w: %v", ErrMalformed, err)
	}
	gender := strings.ToLower(strings.TrimSpace(parsed.Gender))
	if gender == "" {
		return "", fmt.Errorf("classify narrator: %w: empty gender", ErrMalformed)
	}
	return gender, nil
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformed)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content (finish_reason=%q)", ErrMalformed, resp.Choices[0].FinishReason)
	}
	c.logger.Debug().Int("chars", len(content)).Msg("completion received")
	return content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: http %d: %v", ErrUnreachable, apiErr.StatusCode, err)
		default:
			return fmt.Errorf("%w: http %d: %v", ErrRejected, apiErr.StatusCode, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// stripCodeFence removes a ```json fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
