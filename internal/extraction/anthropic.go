package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// Anthropic implements the Extractor interface using the Anthropic
// Messages API
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic creates a new Anthropic Extractor instance
func NewAnthropic(apiKey string, modelName string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if modelName == "" {
		modelName = "claude-3-5-sonnet-latest"
	}

	return &Anthropic{
		client: anthropic.NewClient(apiKey),
		model:  anthropic.Model(modelName),
	}, nil
}

// ExtractCard reads a business card image and extracts contact fields
func (a *Anthropic) ExtractCard(imageData []byte, contentType string) (*CardDetails, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Convert to PNG if needed
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: a.model,
		// A card holds a handful of short fields; 1024 tokens is ample
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(
						anthropic.NewMessageContentSource(
							anthropic.MessagesContentSourceTypeBase64,
							"image/png",
							finalImageData,
						),
					),
					anthropic.NewTextMessageContent(cardExtractPrompt),
				},
			},
		},
	})
	if err != nil {
		var reqErr *anthropic.RequestError
		if errors.As(err, &reqErr) {
			return nil, &HTTPError{Status: reqErr.StatusCode, Body: reqErr.Error()}
		}
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}

	text := strings.TrimSpace(resp.GetFirstContentText())
	if text == "" {
		return nil, ErrMalformedResponse
	}

	details, err := parseCardJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing card fields: %w", err)
	}

	return details, nil
}

// Close closes the Anthropic client (no-op for HTTP client)
func (a *Anthropic) Close() error {
	return nil
}
