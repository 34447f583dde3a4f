package fetch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/slideshow"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func newRequest(srvURL string, index int) Request {
	seq := slideshow.Sequence{BaseLink: srvURL + "/meme", Format: ".png", Min: 1, Max: 3}
	return NewRequest(seq, index, 1)
}

func TestFetchSuccess(t *testing.T) {
	body := pngBytes(t, 400, 300)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, quietLogger())
	res := f.Fetch(context.Background(), newRequest(srv.URL, 2))

	if res.Err != nil {
		t.Fatalf("Fetch error: %v", res.Err)
	}
	if gotPath != "/meme2.png" {
		t.Errorf("requested path = %q, want /meme2.png", gotPath)
	}
	if res.Image.Width != 400 || res.Image.Height != 300 {
		t.Errorf("size = %dx%d, want 400x300", res.Image.Width, res.Image.Height)
	}
	if res.Image.Format != "png" {
		t.Errorf("format = %q, want png", res.Image.Format)
	}
	if got := res.Image.Aspect(); got < 1.333 || got > 1.334 {
		t.Errorf("Aspect() = %v, want 4/3", got)
	}
}

func TestFetchErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind Kind
		sentinel error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
			wantKind: KindResponse,
			sentinel: ErrResponse,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantKind: KindResponse,
			sentinel: ErrResponse,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>definitely not a jpeg</html>"))
			},
			wantKind: KindDecode,
			sentinel: ErrDecode,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantKind: KindDecode,
			sentinel: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewFetcher(time.Second, quietLogger())
			res := f.Fetch(context.Background(), newRequest(srv.URL, 1))
			if res.Err == nil {
				t.Fatal("expected error")
			}
			if res.Image != nil {
				t.Error("failed fetch should not carry an image")
			}
			kind, ok := KindOf(res.Err)
			if !ok || kind != tt.wantKind {
				t.Errorf("KindOf = %v, %v; want %v", kind, ok, tt.wantKind)
			}
			if !errors.Is(res.Err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", res.Err, tt.sentinel)
			}
		})
	}
}

func TestFetchTransportErrorOnClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewFetcher(time.Second, quietLogger())
	res := f.Fetch(context.Background(), newRequest(url, 1))
	if !errors.Is(res.Err, ErrTransport) {
		t.Fatalf("err = %v, want transport error", res.Err)
	}
}

func TestFetchTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(50*time.Millisecond, quietLogger())
	res := f.Fetch(context.Background(), newRequest(srv.URL, 1))
	if !errors.Is(res.Err, ErrTransport) {
		t.Fatalf("err = %v, want transport error", res.Err)
	}
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0}, 2048))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, quietLogger())
	f.MaxBytes = 1024
	res := f.Fetch(context.Background(), newRequest(srv.URL, 1))
	if !errors.Is(res.Err, ErrResponse) {
		t.Fatalf("err = %v, want response error", res.Err)
	}
}

func TestFetchRejectsOversizedDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Black}), nil); err != nil {
		t.Fatalf("gif.Encode: %v", err)
	}
	body := buf.Bytes()
	// Logical screen width and height, little endian.
	body[6], body[7], body[8], body[9] = 0xff, 0xff, 0xff, 0xff

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, quietLogger())
	res := f.Fetch(context.Background(), newRequest(srv.URL, 1))
	if !errors.Is(res.Err, ErrDecode) {
		t.Fatalf("err = %v, want decode error", res.Err)
	}
	if res.Image != nil {
		t.Error("no image should be returned")
	}
}

type mapCache map[string][]byte

func (m mapCache) Get(url string) ([]byte, bool) {
	b, ok := m[url]
	return b, ok
}

func (m mapCache) Put(url string, body []byte) error {
	m[url] = body
	return nil
}

func TestFetchReadThroughCache(t *testing.T) {
	body := pngBytes(t, 10, 20)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	cache := mapCache{}
	f := NewFetcher(time.Second, quietLogger())
	f.SetCache(cache)

	req := newRequest(srv.URL, 3)
	first := f.Fetch(context.Background(), req)
	if first.Err != nil || first.FromCache {
		t.Fatalf("first fetch = %+v", first)
	}
	second := f.Fetch(context.Background(), req)
	if second.Err != nil || !second.FromCache {
		t.Fatalf("second fetch should come from cache: %+v", second)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if second.Image.Width != 10 || second.Image.Height != 20 {
		t.Errorf("cached size = %dx%d", second.Image.Width, second.Image.Height)
	}
}

func TestFetchRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := metrics.New()
	f := NewFetcher(time.Second, quietLogger())
	f.SetMetrics(m)
	f.Fetch(context.Background(), newRequest(srv.URL, 1))

	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("response")); got != 1 {
		t.Errorf("response fetches = %v, want 1", got)
	}
}

func TestNewRequestIDsAreUnique(t *testing.T) {
	seq := slideshow.Sequence{BaseLink: "http://x/m", Format: ".jpg", Min: 1, Max: 2}
	a := NewRequest(seq, 1, 1)
	b := NewRequest(seq, 1, 1)
	if a.ID == b.ID {
		t.Error("request IDs collided")
	}
	if a.URL != "http://x/m1.jpg" {
		t.Errorf("URL = %q", a.URL)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(path, pngBytes(t, 8, 4), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := LoadFile("file://" + path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if img.Width != 8 || img.Height != 4 {
		t.Errorf("size = %dx%d", img.Width, img.Height)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.png")); !errors.Is(err, ErrTransport) {
		t.Errorf("missing file err = %v, want transport", err)
	}
}
