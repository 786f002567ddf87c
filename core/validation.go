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


package core

import (
	"fmt"
	"strings"
)

// ValidateReportDraft validates a ReportDraft according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - SourceText must not be blank
//   - Entities must not be nil (an empty list is valid)
//   - Summary must be present
//
// NOT validated:
//   - Narrative (the pipeline always supplies one, possibly templated)
//   - Context (retrieval may be disabled)
func ValidateReportDraft(draft *ReportDraft) error {
	if draft == nil {
		return fmt.Errorf("%w: draft is nil", ErrInvalidReport)
	}
	if draft.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidReport)
	}
	if strings.TrimSpace(draft.SourceText) == "" {
		return fmt.Errorf("%w: source text: %w", ErrInvalidReport, ErrEmptyContent)
	}
	if draft.Entities == nil {
		return fmt.Errorf("%w: entities are required", ErrInvalidReport)
	}
	if draft.Summary == nil {
		return fmt.Errorf("%w: summary is required", ErrInvalidReport)
	}
	return nil
}

// ValidateEntity checks an entity against the text it was extracted from.
func ValidateEntity(e Entity, text string) error {
	if e.Term == "" {
		return fmt.Errorf("%w: entity term: %w", ErrInvalidParameter, ErrEmptyContent)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidParameter, e.Confidence)
	}
	if e.Span.Start < 0 || e.Span.Start > e.Span.End || e.Span.End > len(text) {
		return fmt.Errorf("%w: span [%d,%d) outside text of length %d",
			ErrInvalidParameter, e.Span.Start, e.Span.End, len(text))
	}
	return nil
}
