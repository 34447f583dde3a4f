package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/server"
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
)

// mockAsk answers prompts by message.
func mockAsk(t *testing.T, answers map[string]interface{}) func(survey.Prompt, interface{}, ...survey.AskOpt) error {
	return func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		var question string
		switch prompt := p.(type) {
		case *survey.Select:
			question = prompt.Message
		case *survey.Input:
			question = prompt.Message
		case *survey.Confirm:
			question = prompt.Message
		default:
			return fmt.Errorf("unknown prompt type %T", p)
		}

		val, ok := answers[question]
		if !ok {
			t.Errorf("unexpected question: %s", question)
			return fmt.Errorf("unexpected question: %s", question)
		}
		switch r := response.(type) {
		case *string:
			*r = val.(string)
		case *bool:
			*r = val.(bool)
		default:
			return fmt.Errorf("unsupported response type %T", response)
		}
		return nil
	}
}

func swapAsk(t *testing.T, fn func(survey.Prompt, interface{}, ...survey.AskOpt) error) {
	t.Helper()
	orig := askOneFunc
	askOneFunc = fn
	t.Cleanup(func() { askOneFunc = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.Write(path, config.Default()); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigInitPrompts(t *testing.T) {
	swapAsk(t, mockAsk(t, map[string]interface{}{
		promptBaseLink: "https://memes.test/img",
		promptFormat:   ".png",
		promptMaxIndex: "12",
		promptTracker:  "ws://127.0.0.1:8090/ws",
	}))

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	out, err := execute(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Slideshow.BaseLink != "https://memes.test/img" || cfg.Slideshow.Format != ".png" || cfg.Slideshow.MaxIndex != 12 {
		t.Errorf("slideshow = %+v", cfg.Slideshow)
	}
	if cfg.Simulated() {
		t.Error("tracker url should be set")
	}
}

func TestConfigInitDefaults(t *testing.T) {
	swapAsk(t, func(p survey.Prompt, _ interface{}, _ ...survey.AskOpt) error {
		t.Errorf("no prompts expected, got %T", p)
		return nil
	})

	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := execute(t, "config", "init", "--defaults", "--path", path); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Slideshow.MaxIndex != config.Default().Slideshow.MaxIndex {
		t.Errorf("max index = %d", cfg.Slideshow.MaxIndex)
	}
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	path := writeConfig(t)
	before, _ := os.ReadFile(path)

	swapAsk(t, mockAsk(t, map[string]interface{}{
		fmt.Sprintf("%s exists. Overwrite?", path): false,
	}))

	out, err := execute(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Errorf("output = %q", out)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("file should not change when overwrite is declined")
	}
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"base_link:", "fetch_timeout:", "cells_per_unit:"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestMark(t *testing.T) {
	store := targets.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := server.NewBroadcaster(store, time.Hour, 0, logger, nil)
	srv := httptest.NewServer(server.NewServer(config.ServerConfig{}, store, b, logger, nil).Router())
	t.Cleanup(func() {
		b.Stop()
		srv.Close()
	})

	path := writeConfig(t)
	out, err := execute(t, "mark", "poster", "extended_tracked", "--info", "walked away", "--tracker", srv.URL, "--config", path)
	if err != nil {
		t.Fatalf("mark: %v\n%s", err, out)
	}
	if !strings.Contains(out, "poster -> extended_tracked") {
		t.Errorf("output = %q", out)
	}

	st, ok := store.Get("poster")
	if !ok || st.Status != tracking.ExtendedTracked || st.Info != "walked away" {
		t.Errorf("store entry = %+v, %v", st, ok)
	}
}

func TestStatus(t *testing.T) {
	store := targets.NewStore()
	store.Update(&targets.TargetState{
		Target: tracking.Target{ID: "poster", Name: "Poster"},
		Status: tracking.Tracked,
		Info:   "normal",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := server.NewBroadcaster(store, time.Hour, 0, logger, nil)
	srv := httptest.NewServer(server.NewServer(config.ServerConfig{}, store, b, logger, nil).Router())
	t.Cleanup(func() {
		b.Stop()
		srv.Close()
	})

	out, err := execute(t, "status", "--tracker", srv.URL, "--config", writeConfig(t))
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"uptime", "0 viewer(s)", "Markers: 1", "Visible: 1", "Poster"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkRejectsUnknownStatus(t *testing.T) {
	_, err := execute(t, "mark", "poster", "sideways")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Errorf("err = %v", err)
	}
}

func TestValidateIndex(t *testing.T) {
	tests := []struct {
		in      interface{}
		wantErr bool
	}{
		{"24", false},
		{" 3 ", false},
		{"0", true},
		{"-2", true},
		{"lots", true},
		{42, true},
	}
	for _, tt := range tests {
		if err := validateIndex(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateIndex(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestRootLoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MEMELENS_SLIDESHOW_FORMAT=.bmp\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t)
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("MEMELENS_SLIDESHOW_FORMAT") })

	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ".bmp") {
		t.Errorf(".env override missing from config show:\n%s", out)
	}
}

func pngServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatal(err)
	}
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestViewFetcherSkipsCacheByDefault(t *testing.T) {
	srv, hits := pngServer(t)
	cfg := config.Default()
	cfg.Slideshow.BaseLink = srv.URL + "/meme"
	cfg.Slideshow.Format = ".png"

	fetcher, closeCache, err := newFetcher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closeCache()

	for i := 0; i < 3; i++ {
		res := fetcher.Fetch(context.Background(), fetch.NewRequest(cfg.Sequence(), 1, i+1))
		if res.Err != nil || res.FromCache {
			t.Fatalf("fetch %d = %+v", i+1, res)
		}
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want every fetch on the network", hits.Load())
	}
}

func TestViewFetcherUsesCacheDir(t *testing.T) {
	srv, hits := pngServer(t)
	cfg := config.Default()
	cfg.Slideshow.BaseLink = srv.URL + "/meme"
	cfg.Slideshow.Format = ".png"
	cfg.Cache.Dir = t.TempDir()

	fetcher, closeCache, err := newFetcher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closeCache()

	first := fetcher.Fetch(context.Background(), fetch.NewRequest(cfg.Sequence(), 2, 1))
	second := fetcher.Fetch(context.Background(), fetch.NewRequest(cfg.Sequence(), 2, 2))
	if first.Err != nil || second.Err != nil || !second.FromCache {
		t.Fatalf("first = %+v, second = %+v", first, second)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"view": false, "tracker": false, "mark": false, "status": false, "config": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
