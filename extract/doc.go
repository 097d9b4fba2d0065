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

// Package extract defines the extractor collaborator consumed by batch
// ingestion, with plain text and markdown implementations.
//
// An Extractor opens a source and yields its pages in order. Pages are
// separated by form feeds in both formats. Markdown pages are further split at
// headings, each heading becoming the section of the text below it. Failures
// are reported per page or per document as *core.ExtractionError values so
// callers can skip the failing item and carry on.
package extract
