package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/frostming/cacheyou/internal/testutil"
	"github.com/frostming/cacheyou/pkg/controller"
	"github.com/frostming/cacheyou/pkg/store"
	"github.com/frostming/cacheyou/pkg/transport"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store.Backend != "memory" {
		t.Errorf("default backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.redisTTL != 24*time.Hour {
		t.Errorf("default redis TTL = %v, want 24h", cfg.Store.redisTTL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cachectl.yaml")
	content := `
store:
  backend: leveldb
  path: /tmp/cachectl-test
cache:
  shared: true
  heuristic: true
server:
  port: 9090
  origin: https://example.com/
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store.Backend != "leveldb" {
		t.Errorf("backend = %q, want leveldb", cfg.Store.Backend)
	}
	if !cfg.Cache.Shared || !cfg.Cache.Heuristic {
		t.Error("cache.shared and cache.heuristic should both be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Origin != "https://example.com" {
		t.Errorf("origin = %q, want trailing slash trimmed", cfg.Server.Origin)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cachectl.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: etcd\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBuildStoreBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		var cfg Config
		cfg.Store.Backend = "memory"
		s, cleanup, err := buildStore(cfg)
		if err != nil {
			t.Fatalf("buildStore: %v", err)
		}
		defer cleanup()
		if s == nil {
			t.Error("store is nil")
		}
	})

	t.Run("file", func(t *testing.T) {
		var cfg Config
		cfg.Store.Backend = "file"
		cfg.Store.Path = t.TempDir()
		s, cleanup, err := buildStore(cfg)
		if err != nil {
			t.Fatalf("buildStore: %v", err)
		}
		defer cleanup()
		if s == nil {
			t.Error("store is nil")
		}
	})

	t.Run("leveldb", func(t *testing.T) {
		var cfg Config
		cfg.Store.Backend = "leveldb"
		cfg.Store.Path = filepath.Join(t.TempDir(), "db")
		s, cleanup, err := buildStore(cfg)
		if err != nil {
			t.Fatalf("buildStore: %v", err)
		}
		defer cleanup()
		if s == nil {
			t.Error("store is nil")
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("body = %q, want OK", body)
	}
}

func TestReadyEndpoint(t *testing.T) {
	handler := readyHandler(store.NewMemory())

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for healthy store", w.Result().StatusCode)
	}
}

func TestProxyHandlerServesFromCache(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/data", testutil.NewCacheableResponse(`{"v":1}`, "300", `"p1"`))

	ctrl := controller.New(store.NewMemory(), controller.Options{})
	client := transport.New(ctrl, transport.Options{MarkCachedResponses: true}).Client()
	handler := proxyHandler(origin.URL(), client, zerolog.Nop())

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/data", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	first := get()
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := get()
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), `{"v":1}`) {
		t.Errorf("second body = %q", second.Body.String())
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("origin saw %d requests, want 1", origin.GetRequestCount())
	}
	if second.Header().Get(transport.FromCacheHeader) != "1" {
		t.Error("second response should be marked as served from cache")
	}
}

func TestDescribeOutcome(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "no marker is a miss", headers: nil, want: "MISS"},
		{name: "marker with age is a hit", headers: map[string]string{transport.FromCacheHeader: "1", "Age": "12"}, want: "HIT"},
		{name: "marker without age is a revalidation", headers: map[string]string{transport.FromCacheHeader: "1"}, want: "REVALIDATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: make(http.Header)}
			for name, value := range tt.headers {
				resp.Header.Set(name, value)
			}
			if got := describeOutcome(resp); got != tt.want {
				t.Errorf("describeOutcome = %q, want %q", got, tt.want)
			}
		})
	}
}
