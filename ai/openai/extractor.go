// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	chat          *chatClient
	minConfidence float64
	logger        *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type entity struct {
	Term       string  `json:"term"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// entityResponse is the wrapper structure for the LLM's JSON response.
type entityResponse struct {
	Entities []entity `json:"entities"`
}

func newEntityExtractor(chat *chatClient, config *ai.Config) *EntityExtractor {
	return &EntityExtractor{
		chat:          chat,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}
	return newEntityExtractor(chat, config), nil
}

// ExtractEntities extracts medical entities from text using an LLM.
// Terms the model reports that do not occur in the text are dropped, as are
// entities below the confidence threshold. Results are ordered by position.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]core.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return []core.Entity{}, nil
	}

	var result entityResponse
	if err := e.chat.completeJSON(ctx, buildEntityPrompt(), text, &result); err != nil {
		return nil, err
	}

	// Repeated terms claim successive occurrences in the text.
	searchFrom := make(map[string]int)
	extracted := make([]core.Entity, 0, len(result.Entities))
	for _, raw := range result.Entities {
		term := strings.TrimSpace(raw.Term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		start := indexFold(text, term, searchFrom[key])
		if start < 0 {
			e.logger.Debug("dropping entity not found in text", "term", term)
			continue
		}
		end := start + len(term)
		searchFrom[key] = end

		confidence := min(max(raw.Confidence, 0), 1)
		if confidence < e.minConfidence {
			continue
		}
		extracted = append(extracted, core.Entity{
			Term:       text[start:end],
			Type:       core.ParseEntityType(raw.Type),
			Confidence: confidence,
			Span:       core.Span{Start: start, End: end},
		})
	}

	slices.SortStableFunc(extracted, func(a, b core.Entity) int {
		return a.Span.Start - b.Span.Start
	})

	e.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"filtered", len(extracted))
	return extracted, nil
}

// indexFold returns the byte offset of the first case-insensitive match of
// term in text at or after from, or -1.
func indexFold(text, term string, from int) int {
	for i := from; i+len(term) <= len(text); i++ {
		if strings.EqualFold(text[i:i+len(term)], term) {
			return i
		}
	}
	return -1
}
