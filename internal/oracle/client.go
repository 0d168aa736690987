// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package oracle is the text-completion client. Any OpenAI-compatible chat
// completions endpoint works: OpenAI itself, Gemini's compatibility endpoint,
// Ollama, vLLM and similar servers.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperr "chatdb/cli/internal/errors"

	"github.com/sashabaranov/go-openai"
)

// Config holds the endpoint settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client sends single-turn prompts to a chat completions endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// New builds a Client. The HTTP timeout bounds every request.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, apperr.New(apperr.OracleFailed, "no model configured")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: c.temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Wrap(apperr.OracleFailed, "completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.OracleFailed, "completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping checks the endpoint and key by listing models. Endpoints that do not
// implement /models (404) are treated as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return nil
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("verify model endpoint: %w", err)
}
