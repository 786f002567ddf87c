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
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed request, such as a pipeline run
	// given both audio and text, or neither.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter indicates an out of range argument, such as a
	// negative top-k or min length greater than max length.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedMedia indicates audio that cannot be decoded.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrCapabilityUnavailable indicates a model or service could not be reached.
	// Failures wrapping this error are considered transient.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrDimensionMismatch indicates an embedding of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound indicates an unknown report id.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable indicates the report store cannot serve requests.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidReport indicates a report draft failed validation.
	ErrInvalidReport = errors.New("invalid report")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)

// DimensionMismatchError reports an embedding whose length differs from
// the dimension fixed for the knowledge base.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Actual)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
