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

// Package suggest provides autocomplete over a per-language index of
// distinct weighted terms.
//
// Terms are usually fed from indexed page text through the stemming
// analyzer. Suggestions come from three sources, in priority order:
//   - terms starting with the typed prefix
//   - terms within a small edit distance of the typed word
//   - synonyms of the typed word
//
// Each language's term index is independent of its content index and of
// every other language.
package suggest
