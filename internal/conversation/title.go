package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// MaxTitleRunes bounds generated session titles.
const MaxTitleRunes = 50

// Titler derives a session title from the first user message.
type Titler interface {
	Title(ctx context.Context, firstMessage string) (string, error)
}

// TruncateTitler uses the first line of the message, whitespace collapsed,
// cut to MaxTitleRunes with an ellipsis.
type TruncateTitler struct{}

func (TruncateTitler) Title(_ context.Context, msg string) (string, error) {
	return Truncate(msg), nil
}

// Truncate is the TruncateTitler policy as a plain function.
func Truncate(msg string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	title := strings.Join(strings.Fields(line), " ")
	if utf8.RuneCountInString(title) <= MaxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleRunes-1])) + "…"
}

const titleSystemPrompt = "You generate ultra-concise chat titles for an industrial automation assistant."

// OpenAITitler asks an OpenAI-compatible chat model for a short title and
// falls back to truncation when the call fails or returns nothing.
type OpenAITitler struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewOpenAITitler creates a titler. An empty baseURL uses api.openai.com.
func NewOpenAITitler(apiKey, baseURL, model string, log *zap.Logger) *OpenAITitler {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAITitler{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

func (t *OpenAITitler) Title(ctx context.Context, msg string) (string, error) {
	prompt := msg
	if utf8.RuneCountInString(prompt) > 1000 {
		prompt = string([]rune(prompt)[:1000]) + "..."
	}
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Summarise this request in 4-6 words as a chat title. Reply with ONLY the title, no punctuation:\n\n" + prompt},
		},
		MaxTokens:   20,
		Temperature: 0.5,
	})
	if err != nil {
		t.log.Debug("title model failed, truncating", zap.Error(err))
		return Truncate(msg), nil
	}
	if len(resp.Choices) == 0 {
		return Truncate(msg), nil
	}
	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"'`)
	if title == "" {
		return Truncate(msg), nil
	}
	return Truncate(title), nil
}

// NewTitler builds the titler named by provider: "openai" or "truncate".
func NewTitler(provider, apiKey, baseURL, model string, log *zap.Logger) (Titler, error) {
	switch provider {
	case "", "truncate":
		return TruncateTitler{}, nil
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("title provider openai requires an API key")
		}
		return NewOpenAITitler(apiKey, baseURL, model, log), nil
	default:
		return nil, fmt.Errorf("unknown title provider: %s", provider)
	}
}
