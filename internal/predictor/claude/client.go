// Package claude implements a predictor backend that asks a Claude model
// for the ESI level of an encoded observation.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
)

const defaultMaxTokens = 64

const systemPrompt = `You are an emergency department triage assistant.
You receive one patient observation encoded as a JSON feature map and assign an
Emergency Severity Index level from 1 (most urgent) to 5 (least urgent).
Feature keys set to 1 are present findings. Missing keys are absent findings.
Reply with a single JSON object and nothing else: {"predicted_esi": <level>}`

// Client implements predictor.Backend on top of the Anthropic Messages API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Claude backend for model. Extra request options are appended
// after the API key, which lets tests point the client at a local server.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

// Name implements predictor.Backend.
func (c *Client) Name() string { return "claude" }

// Exchange implements predictor.Backend.
func (c *Client) Exchange(ctx context.Context, payload esi.Payload) (*predictor.Response, error) {
	features, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(string(features))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &predictor.ExchangeError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &predictor.ExchangeError{Err: err}
	}

	return fromSDKResponse(msg)
}

// fromSDKResponse pulls the first JSON object out of the model's text blocks
// and decodes it as a predictor response.
func fromSDKResponse(msg *anthropic.Message) (*predictor.Response, error) {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	s := text.String()
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, &predictor.ContractError{Message: predictor.UnexpectedResponse}
	}

	var out predictor.Response
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, &predictor.ContractError{Message: predictor.UnexpectedResponse}
	}
	return &out, nil
}
