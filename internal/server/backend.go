// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/stream"
)

// Backend generates a reply, calling onToken for each fragment in order.
// Returning an error from onToken aborts generation.
type Backend interface {
	Generate(ctx context.Context, system string, history []stream.HistoryMessage, onToken func(string) error) error
}

// Provider names an LLM provider.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// BackendConfig selects and configures the LLM provider.
type BackendConfig struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// =============================================================================
// LANGCHAIN BACKEND
// =============================================================================

// LangChainBackend streams replies from any langchaingo model.
type LangChainBackend struct {
	llm llms.Model
}

// NewLangChainBackend creates a backend for the configured provider.
func NewLangChainBackend(cfg BackendConfig) (*LangChainBackend, error) {
	var (
		llm llms.Model
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		llm, err = ollama.New(ollama.WithServerURL(baseURL), ollama.WithModel(cfg.Model))
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	return NewLangChainBackendWithModel(llm), nil
}

// NewLangChainBackendWithModel wraps an existing model.
func NewLangChainBackendWithModel(llm llms.Model) *LangChainBackend {
	return &LangChainBackend{llm: llm}
}

// Generate implements Backend.
func (b *LangChainBackend) Generate(ctx context.Context, system string, history []stream.HistoryMessage, onToken func(string) error) error {
	_, err := b.llm.GenerateContent(ctx, toMessageContent(system, history),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onToken(string(chunk))
		}))
	return err
}

func toMessageContent(system string, history []stream.HistoryMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history)+1)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range history {
		kind := llms.ChatMessageTypeHuman
		if m.Role == model.RoleAssistant {
			kind = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(kind, m.Content))
	}
	return out
}
