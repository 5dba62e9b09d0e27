package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/kalhel/postkeep/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPage struct{}

func (stubPage) ContentContainer() (core.Element, bool) { return nil, false }
func (stubPage) StructuredData() []string               { return nil }
func (stubPage) FindAll(string) []core.Element          { return nil }

type stubPages map[string]error

func (s stubPages) Load(_ context.Context, url string) (core.Page, error) {
	if err := s[url]; err != nil {
		return nil, err
	}
	return stubPage{}, nil
}

type stubExtractor struct{ blocks []core.Block }

func (e stubExtractor) Extract(context.Context, core.Page) core.ExtractionResult {
	return core.ExtractionResult{Blocks: e.blocks}
}

type recordingStore struct {
	saved  []string
	failed map[string]error
}

func (s *recordingStore) SavePost(_ context.Context, url string, _ core.ExtractionResult) (int64, error) {
	s.saved = append(s.saved, url)
	return int64(len(s.saved)), nil
}

func (s *recordingStore) MarkFailed(_ context.Context, url string, cause error) error {
	if s.failed == nil {
		s.failed = make(map[string]error)
	}
	s.failed[url] = cause
	return nil
}

type countingMedia struct{ calls int }

func (m *countingMedia) DownloadAll(context.Context, []core.Block) map[string]string {
	m.calls++
	return nil
}

func TestArchiver_StoresPost(t *testing.T) {
	st := &recordingStore{}
	m := &countingMedia{}
	a := &archiver{
		pages:     stubPages{},
		extractor: stubExtractor{blocks: []core.Block{&core.Paragraph{Text: "Hello there"}}},
		media:     m,
		store:     st,
	}

	n, err := a.archive(context.Background(), "https://www.patreon.com/posts/a-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"https://www.patreon.com/posts/a-1"}, st.saved)
	assert.Equal(t, 1, m.calls)
}

func TestArchiver_RecordsFailure(t *testing.T) {
	st := &recordingStore{}
	a := &archiver{
		pages:     stubPages{"https://www.patreon.com/posts/b-2": errors.New("timeout")},
		extractor: stubExtractor{},
		store:     st,
	}

	_, err := a.archive(context.Background(), "https://www.patreon.com/posts/b-2")
	require.Error(t, err)
	assert.Empty(t, st.saved)
	require.Contains(t, st.failed, "https://www.patreon.com/posts/b-2")
	assert.ErrorContains(t, st.failed["https://www.patreon.com/posts/b-2"], "timeout")
}

func TestArchiver_StoresEmptyResult(t *testing.T) {
	st := &recordingStore{}
	a := &archiver{pages: stubPages{}, extractor: stubExtractor{}, store: st}

	n, err := a.archive(context.Background(), "https://www.patreon.com/posts/c-3")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, st.saved, 1)
}

func TestSelectRenderer(t *testing.T) {
	reset := func() { flagPDF, flagMarkdown, flagJSON = false, false, false }
	t.Cleanup(reset)

	reset()
	_, err := selectRenderer()
	assert.Error(t, err)

	flagMarkdown = true
	r, err := selectRenderer()
	require.NoError(t, err)
	assert.Equal(t, ".md", r.Extension())

	flagJSON = true
	_, err = selectRenderer()
	assert.Error(t, err)
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://www.patreon.com/posts/a-1"))
	assert.Error(t, validateURL("www.patreon.com/posts/a-1"))
	assert.Error(t, validateURL("ftp://example.com/x"))
}
