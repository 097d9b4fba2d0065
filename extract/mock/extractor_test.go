package mock

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor(t *testing.T) {
	ctx := context.Background()
	ext := NewExtractor()
	ext.AddDocument("a.pdf", "one", "two", "three")
	ext.FailPage("a.pdf", 2, errors.New("bad xref"))
	ext.FailOpen("b.pdf", errors.New("locked"))
	ext.AddDocument("b.pdf", "only")

	doc, err := ext.Open(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())

	var texts []string
	var failed []int
	for page, err := range doc.Pages(ctx) {
		if err != nil {
			var extractErr *core.ExtractionError
			require.True(t, errors.As(err, &extractErr))
			failed = append(failed, extractErr.Page)
			continue
		}
		texts = append(texts, page.Text)
	}
	assert.Equal(t, []string{"one", "three"}, texts)
	assert.Equal(t, []int{2}, failed)
	require.NoError(t, doc.Close())

	_, err = ext.Open(ctx, "b.pdf")
	assert.True(t, errors.Is(err, core.ErrExtraction))
	_, err = ext.Open(ctx, "b.pdf")
	assert.NoError(t, err)

	_, err = ext.Open(ctx, "missing.pdf")
	assert.True(t, errors.Is(err, core.ErrExtraction))

	assert.Equal(t, 2, ext.Opens("b.pdf"))
	assert.Equal(t, 4, ext.CallCount())
	assert.Equal(t, 1, ext.Closes())

	ext.Reset()
	assert.Zero(t, ext.CallCount())
}

func TestExtractor_OpenFunc(t *testing.T) {
	ext := NewExtractor()
	ext.OpenFunc = func(ctx context.Context, path string) (extract.Document, error) {
		return nil, errors.New("custom")
	}
	_, err := ext.Open(context.Background(), "x")
	assert.EqualError(t, err, "custom")
}
