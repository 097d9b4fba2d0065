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

// Package storage provides the storage abstraction layer for olrs.
//
// It defines the capability interfaces that decouple index implementations
// from the query and ingestion layers:
//
//   - LanguageIndex: one full-text index per language (stage, commit, search)
//   - IndexProvider: opens, lists and destroys language indexes of one variant
//   - TermStore: the per-language suggestion term index
//   - TermProvider: opens and destroys term stores
//
// Concrete variants are selected at construction time by choosing a provider,
// for example badger.NewDiskProvider or badger.NewMemoryProvider.
//
// # Serialization
//
// Stored values (records, postings, field statistics) are encoded with mus-go.
// Collection lengths are written as varints ahead of their elements and
// posting positions are delta-encoded.
//
// # Thread Safety
//
// All implementations must be thread-safe. Readers must never block on a
// concurrent writer and must observe only committed state.
package storage
