package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidJPEG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// fakeProber serves images keyed by candidate file name.
type fakeProber struct {
	images map[string][]byte
	fail   bool
	panics bool
	probed []string
}

func (p *fakeProber) name(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

func (p *fakeProber) Exists(_ context.Context, url string) (bool, error) {
	p.probed = append(p.probed, p.name(url))
	if p.panics {
		panic("boom")
	}
	if p.fail {
		return false, errors.New("network down")
	}
	_, ok := p.images[p.name(url)]
	return ok, nil
}

func (p *fakeProber) FetchBytes(_ context.Context, url string) ([]byte, error) {
	if p.fail {
		return nil, errors.New("network down")
	}
	return p.images[p.name(url)], nil
}

type mapCache map[string]string

func (c mapCache) Get(_ context.Context, id string) (string, bool) {
	v, ok := c[id]
	return v, ok
}

func (c mapCache) Set(_ context.Context, id, url string) { c[id] = url }

func TestBrightness(t *testing.T) {
	white, err := Brightness(solidPNG(t, color.White))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, white, 0.01)

	black, err := Brightness(solidPNG(t, color.Black))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, black, 0.01)

	gray, err := Brightness(solidJPEG(t, color.Gray{Y: 128}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gray, 0.05)

	_, err = Brightness([]byte("not an image"))
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	c := Candidates("abc123")
	require.Len(t, c, 6)
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", c[0])
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/mqdefault.jpg", c[1])
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/maxresdefault.jpg", c[5])
}

func TestResolve_SkipsDarkCandidates(t *testing.T) {
	prober := &fakeProber{images: map[string][]byte{
		"hqdefault.jpg": solidPNG(t, color.Black),
		"1.jpg":         solidPNG(t, color.Gray{Y: 200}),
		"2.jpg":         solidPNG(t, color.White),
	}}
	r := New(prober, 0.15)

	url := r.Resolve(context.Background(), "abc123")
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/1.jpg", url)
	// Short-circuits after the first accepted candidate.
	assert.Equal(t, []string{"hqdefault.jpg", "mqdefault.jpg", "1.jpg"}, prober.probed)
}

func TestResolve_FallbackWhenNetworkFails(t *testing.T) {
	r := New(&fakeProber{fail: true}, 0.15)

	url := r.Resolve(context.Background(), "abc123")
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", url)
}

func TestResolve_FallbackWhenProberPanics(t *testing.T) {
	r := New(&fakeProber{panics: true}, 0.15)

	url := r.Resolve(context.Background(), "xyz")
	assert.Equal(t, "https://i.ytimg.com/vi/xyz/hqdefault.jpg", url)
}

func TestResolve_FallbackWhenAllDark(t *testing.T) {
	dark := solidPNG(t, color.Gray{Y: 10})
	prober := &fakeProber{images: map[string][]byte{}}
	for _, name := range candidateNames {
		prober.images[name] = dark
	}
	r := New(prober, 0.15)

	url := r.Resolve(context.Background(), "abc123")
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", url)
	assert.Len(t, prober.probed, len(candidateNames))
}

func TestResolve_NilProber(t *testing.T) {
	r := New(nil, 0.15)
	assert.Equal(t, "https://i.ytimg.com/vi/v1/hqdefault.jpg", r.Resolve(context.Background(), "v1"))
}

func TestResolve_UsesCache(t *testing.T) {
	prober := &fakeProber{images: map[string][]byte{"mqdefault.jpg": solidPNG(t, color.White)}}
	cache := mapCache{}
	r := New(prober, 0.15, WithCache(cache))

	first := r.Resolve(context.Background(), "abc123")
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/mqdefault.jpg", first)
	assert.Equal(t, first, cache["abc123"])

	prober.probed = nil
	second := r.Resolve(context.Background(), "abc123")
	assert.Equal(t, first, second)
	assert.Empty(t, prober.probed)
}
