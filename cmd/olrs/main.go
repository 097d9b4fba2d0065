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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs"
	"github.com/famhp/olrs/config"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/extract"
	"github.com/famhp/olrs/ingestion"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "olrs",
		Usage: "Multi-language page index with partial, whole-word and fuzzy search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Index root directory (overrides the config file)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set log output format (text, json)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index text and markdown files, one page per form feed",
				ArgsUsage: "FILE...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "lang",
						Usage:    "Language of the files",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "doc-id",
						Usage: "Document ID (single file only, defaults to the path)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to the file name)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Input format (auto, text, markdown)",
						Value: "auto",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N pages",
						Value: 10,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the index",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Search mode (partial, whole, fuzzy)",
						Value:   "partial",
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Language to search, or all",
						Value: core.AllLanguages,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum hits per language (0 uses the configured default)",
					},
					&cli.BoolFlag{
						Name:  "expand",
						Usage: "Expand query words with their synonyms",
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Suggest terms for partially typed text",
				ArgsUsage: "TEXT",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "lang",
						Usage:    "Language to suggest from",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of suggestions",
						Value: 10,
					},
				},
			},
			{
				Name:  "synonym",
				Usage: "Manage the synonym store",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add synonyms to a word",
						ArgsUsage: "WORD SYNONYM...",
						Action:    synonymAddCommand,
					},
					{
						Name:      "remove",
						Usage:     "Remove a synonym, or a word with all its synonyms",
						ArgsUsage: "WORD [SYNONYM]",
						Action:    synonymRemoveCommand,
					},
					{
						Name:      "list",
						Usage:     "List synonyms of one word, or every word",
						ArgsUsage: "[WORD]",
						Action:    synonymListCommand,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete a document from one language, or a path from every language",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "doc-id",
						Usage: "Document ID to delete (requires --lang)",
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Language of the document",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Source path to delete from every language",
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Drop the index of a language, or of all languages",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "lang",
						Usage:    "Language to clear, or all",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show record and suggestion counts per language",
				Action: statsCommand,
			},
		},
	}
}

// setup loads the configuration, applies global flag overrides and installs
// the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if root := c.String("root"); root != "" {
		cfg.IndexRoot = root
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := c.String("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logger, err := setupLogger(c.App.ErrWriter, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func setupLogger(w io.Writer, levelStr, format string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
}

func openEngine(c *cli.Context, opts ...olrs.Option) (*olrs.Engine, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	opts = append([]olrs.Option{
		olrs.WithConfig(cfg),
		olrs.WithLogger(slog.Default()),
	}, opts...)

	engine, err := olrs.Open("", opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", cfg.IndexRoot, err)
	}
	return engine, nil
}

func closeEngine(engine *olrs.Engine) {
	if err := engine.Close(); err != nil {
		slog.Error("error closing index", "err", err)
	}
}

func extractorFor(format string) (extract.Extractor, error) {
	switch strings.ToLower(format) {
	case "auto":
		return extract.Auto{}, nil
	case "text":
		return extract.TextExtractor{}, nil
	case "markdown":
		return extract.MarkdownExtractor{}, nil
	default:
		return nil, fmt.Errorf("invalid format %q: must be one of auto, text, markdown", format)
	}
}

func indexCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one file is required")
	}
	docID := c.String("doc-id")
	if docID != "" && len(files) > 1 {
		return fmt.Errorf("--doc-id can only be used with a single file")
	}
	extractor, err := extractorFor(c.String("format"))
	if err != nil {
		return err
	}

	sources := make([]ingestion.Source, 0, len(files))
	for _, file := range files {
		title := c.String("title")
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		sources = append(sources, ingestion.Source{
			DocID:    docID,
			Path:     file,
			Title:    title,
			Language: c.String("lang"),
		})
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	tracker := ingestion.NewProgressTracker(c.App.ErrWriter, c.Int("report-interval"))
	tracker.Start()
	task, err := engine.IndexSources(ctx, sources, extractor, ingestion.WithProgressFunc(tracker.Observe))
	if err != nil {
		return fmt.Errorf("failed to start indexing: %w", err)
	}
	report, waitErr := task.Wait()
	tracker.Finish()

	fmt.Fprintf(c.App.Writer, "Indexed %d pages from %d documents in %s\n",
		report.Pages, report.Documents, tracker.Elapsed().Round(time.Millisecond))
	for _, f := range report.Failures {
		if f.Page > 0 {
			fmt.Fprintf(c.App.ErrWriter, "failed: %s page %d: %v\n", f.Path, f.Page, f.Err)
		} else {
			fmt.Fprintf(c.App.ErrWriter, "failed: %s: %v\n", f.Path, f.Err)
		}
	}
	if waitErr != nil {
		return fmt.Errorf("indexing interrupted: %w", waitErr)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d failures while indexing", len(report.Failures))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	mode, err := core.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c, olrs.WithQueryExpansion(c.Bool("expand")))
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	res, err := engine.Search(c.Context, text, c.String("lang"), mode, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	if len(res.Hits) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	if len(res.MatchedTerms) > 0 {
		fmt.Fprintf(out, "Matched: %s\n", strings.Join(res.MatchedTerms, ", "))
	}
	for _, hit := range res.Hits {
		location := fmt.Sprintf("%s p.%d", hit.Path, hit.Page)
		if hit.Section != "" {
			location += " §" + hit.Section
		}
		fmt.Fprintf(out, "%.3f\t%s\t%s\t%s\t%s\n", hit.Score, hit.Language, hit.DocID, hit.Title, location)
	}
	return nil
}

func suggestCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	suggestions, err := engine.CombinedSuggest(c.Context, c.String("lang"), text, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}
	for _, s := range suggestions {
		fmt.Fprintln(c.App.Writer, s)
	}
	return nil
}

func synonymAddCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("a word and at least one synonym are required")
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	word := c.Args().First()
	for _, syn := range c.Args().Tail() {
		if err := engine.Synonyms().AddSynonym(word, syn); err != nil {
			return err
		}
	}
	return engine.SaveSynonyms()
}

func synonymRemoveCommand(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("usage: synonym remove WORD [SYNONYM]")
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	word := c.Args().First()
	var removed bool
	if c.NArg() == 2 {
		removed = engine.Synonyms().RemoveSynonym(word, c.Args().Get(1))
	} else {
		removed = engine.Synonyms().RemoveWord(word)
	}
	if !removed {
		fmt.Fprintln(c.App.Writer, "Nothing to remove")
		return nil
	}
	return engine.SaveSynonyms()
}

func synonymListCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	store := engine.Synonyms()
	words := store.Words()
	if c.NArg() > 0 {
		words = []string{c.Args().First()}
	}
	for _, word := range words {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", word, strings.Join(store.Get(word), ", "))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	docID, path := c.String("doc-id"), c.String("path")
	switch {
	case docID != "" && path != "":
		return fmt.Errorf("use either --doc-id or --path, not both")
	case docID == "" && path == "":
		return fmt.Errorf("--doc-id or --path is required")
	case docID != "" && c.String("lang") == "":
		return fmt.Errorf("--lang is required with --doc-id")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	if docID != "" {
		return engine.DeleteDocument(c.Context, docID, c.String("lang"))
	}
	return engine.DeleteByPath(c.Context, path)
}

func clearCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	return engine.ClearIndex(c.Context, c.String("lang"))
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	stats, err := engine.Stats(c.Context)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(c.App.Writer, "Index is empty")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%-8s %10s %10s\n", "LANG", "RECORDS", "TERMS")
	for _, s := range stats {
		fmt.Fprintf(c.App.Writer, "%-8s %10d %10d\n", s.Language, s.Records, s.SuggestTerms)
	}
	return nil
}
