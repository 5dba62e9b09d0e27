package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>ok</body></html>"))
	})
	mux.HandleFunc("/img.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("imagebytes"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})

	result, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.HTML, "ok")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestExists(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})

	ok, err := f.Exists(context.Background(), srv.URL+"/img.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Exists(context.Background(), srv.URL+"/nope.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExists_Timeout(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent", ProbeTimeout: 50 * time.Millisecond})

	_, err := f.Exists(context.Background(), srv.URL+"/slow")
	assert.Error(t, err)
}

func TestFetchBytes(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})

	data, err := f.FetchBytes(context.Background(), srv.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("imagebytes"), data)

	_, err = f.FetchBytes(context.Background(), srv.URL+"/nope.jpg")
	assert.Error(t, err)
}

func TestFetch_RejectsOversizedBody(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})
	f.maxBody = 8

	_, err := f.Fetch(context.Background(), srv.URL+"/page")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.FetchBytes(context.Background(), srv.URL+"/img.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)

	f.maxBody = int64(len("imagebytes"))
	data, err := f.FetchBytes(context.Background(), srv.URL+"/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("imagebytes"), data)
}

func TestDownload_StreamsWithoutLimit(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})
	f.maxBody = 4
	assert.Zero(t, f.download.Timeout)

	var buf bytes.Buffer
	n, err := f.Download(context.Background(), srv.URL+"/img.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "imagebytes", buf.String())

	_, err = f.Download(context.Background(), srv.URL+"/nope.jpg", &buf)
	assert.Error(t, err)
}

func TestDownload_HonorsContext(t *testing.T) {
	srv := newServer(t)
	f := New(Options{UserAgent: "test-agent"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Download(ctx, srv.URL+"/slow", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_RandomUserAgent(t *testing.T) {
	f := New(Options{})
	assert.NotEmpty(t, f.userAgent)
	assert.Equal(t, defaultProbeTimeout, f.probe)
	assert.Equal(t, defaultBytesTimeout, f.bytes)
	assert.Equal(t, int64(maxBodyBytes), f.maxBody)
}
