// Package mock provides a scriptable extract.Extractor for tests.
//
// Documents are registered by path with their page texts. Failures can be
// injected for a whole document or for single pages:
//
//	ext := mock.NewExtractor()
//	ext.AddDocument("a.pdf", "first page", "second page")
//	ext.FailPage("a.pdf", 2, errors.New("bad xref"))
//	ext.FailOpen("b.pdf", errors.New("encrypted"))
//
// OpenFunc overrides Open entirely when set.
package mock
