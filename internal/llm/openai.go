package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUpstream wraps every failure of the completion API so callers can
// report it as a gateway error.
var ErrUpstream = errors.New("ai provider unavailable")

// Client is what the triage and analysis services need from a model.
type Client interface {
	// Complete runs a single system+user exchange and returns the answer.
	Complete(ctx context.Context, system, user string) (string, error)
	// ReadImage returns the text visible in an image (OCR).
	ReadImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

type Options struct {
	APIKey      string
	ChatModel   string
	VisionModel string
	Timeout     time.Duration
}

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	chatModel   string
	visionModel string
	timeout     time.Duration
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	var c *openai.Client
	if opts.APIKey != "" {
		c = openai.NewClient(opts.APIKey)
	}
	chatModel := opts.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	visionModel := opts.VisionModel
	if visionModel == "" {
		visionModel = chatModel
	}
	return &OpenAIClient{
		client:      c,
		chatModel:   chatModel,
		visionModel: visionModel,
		timeout:     opts.Timeout,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.create(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	})
}

func (c *OpenAIClient) ReadImage(ctx context.Context, mimeType string, data []byte) (string, error) {
	uri := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return c.create(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ocrPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Transcris ce document."},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    uri,
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
		Temperature: 0,
	})
}

const ocrPrompt = "Tu es un outil d'OCR. Recopie fidèlement tout le texte lisible de l'image, " +
	"ligne par ligne, sans commentaire ni mise en forme."

func (c *OpenAIClient) create(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", ErrUpstream)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
