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


// Package storage provides the storage abstraction layer for medscribe.
//
// It defines the repository interfaces used by the knowledge base and the
// report store, the errors they return, and the binary codec records are
// persisted with. The badger sub-package implements the repositories.
//
// # Repositories
//
//   - KnowledgeRepository: append-only knowledge records, iterated in ID order
//   - ReportRepository: insert-once reports keyed by report ID
//
// # Errors
//
// Callers distinguish a missing record (ErrNotFound) from a store that cannot
// serve requests (ErrStorageClosed). A second insert under an existing report
// ID fails with ErrDuplicateKey.
//
// # Serialization
//
// Records are encoded with mus-go serializers. Timestamps are stored as Unix
// microseconds, lengths as unsigned varints, and floats in raw form.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
