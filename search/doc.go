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

// Package search answers full-text queries across language indexes.
//
// The Searcher turns a query string into a mode-specific query tree:
//   - PARTIAL matches substrings through the n-gram field
//   - WHOLE matches exact words, or exact phrases for multi-word queries
//   - FUZZY matches words within one edit
//
// Each target language is searched concurrently and the hits are merged into
// one list ordered by descending score. A PARTIAL query that finds nothing is
// re-run once as FUZZY.
package search
