// Command cachectl is a diagnostic front end for the cache engine. It
// runs in two modes:
//
//	cachectl fetch URL     fetch a URL repeatedly through the cache and
//	                       report HIT / MISS / REVALIDATED per round trip
//	cachectl proxy         run a caching reverse proxy in front of the
//	                       configured origin, with /health, /ready and
//	                       /metrics endpoints
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/frostming/cacheyou/pkg/controller"
	"github.com/frostming/cacheyou/pkg/logging"
	"github.com/frostming/cacheyou/pkg/store"
	"github.com/frostming/cacheyou/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	repeat := flag.Int("n", 2, "number of fetches in fetch mode")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	s, cleanup, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer cleanup()

	ctrl := controller.New(s, controller.Options{
		Shared:             cfg.Cache.Shared,
		HeuristicFreshness: cfg.Cache.Heuristic,
	})
	client := transport.New(ctrl, transport.Options{MarkCachedResponses: true}).Client()

	switch flag.Arg(0) {
	case "fetch":
		url := flag.Arg(1)
		if url == "" {
			fmt.Fprintln(os.Stderr, "usage: cachectl fetch URL")
			os.Exit(2)
		}
		if err := runFetch(client, url, *repeat); err != nil {
			logger.Fatal().Err(err).Msg("Fetch failed")
		}
	case "proxy", "":
		if cfg.Server.Origin == "" {
			logger.Fatal().Msg("server.origin is required in proxy mode")
		}
		runProxy(cfg, s, client, logger)
	default:
		fmt.Fprintf(os.Stderr, "cachectl: unknown command %q\n", flag.Arg(0))
		os.Exit(2)
	}
}

// buildStore constructs the configured store backend. The cleanup
// function closes whatever the backend holds open.
func buildStore(cfg Config) (store.Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemory(), noop, nil

	case "file":
		s, err := store.NewFile(cfg.Store.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("file store at %s: %w", cfg.Store.Path, err)
		}
		return s, noop, nil

	case "leveldb":
		s, err := store.OpenLevelDB(cfg.Store.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("leveldb store at %s: %w", cfg.Store.Path, err)
		}
		return s, func() { s.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Store.Redis.Addr,
			DB:   cfg.Store.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, noop, fmt.Errorf("redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		return store.NewRedis(client, cfg.Store.redisTTL), func() { client.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
}

// runFetch performs n sequential fetches of url through the caching
// client and reports how each one was answered.
func runFetch(client *http.Client, url string, n int) error {
	for i := 1; i <= n; i++ {
		start := time.Now()
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("fetch %d: %w", i, err)
		}
		size, _ := io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		fmt.Printf("#%d %s %d %s age=%s bytes=%d in %s\n",
			i, url, resp.StatusCode, describeOutcome(resp),
			valueOr(resp.Header.Get("Age"), "-"), size,
			time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// describeOutcome classifies a response for display.
func describeOutcome(resp *http.Response) string {
	if resp.Header.Get(transport.FromCacheHeader) == "" {
		return "MISS"
	}
	if resp.Header.Get("Age") != "" && resp.Header.Get("Age") != "0" {
		return "HIT"
	}
	return "REVALIDATED"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// runProxy serves a caching reverse proxy in front of the configured
// origin.
func runProxy(cfg Config, s store.Store, client *http.Client, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(s))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", proxyHandler(cfg.Server.Origin, client, logger))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info().
		Str("addr", addr).
		Str("origin", cfg.Server.Origin).
		Str("backend", cfg.Store.Backend).
		Msg("Starting caching proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler probes the store. A probe key that does not exist is a
// healthy answer; only transport-level failures mean not ready.
func readyHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if _, err := s.Get(ctx, "cachectl:ready-probe"); err != nil && !errors.Is(err, store.ErrNotFound) {
			http.Error(w, fmt.Sprintf("store not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// proxyHandler forwards requests to the origin through the caching
// client and copies the answer back.
func proxyHandler(origin string, client *http.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, r.Method, origin+r.URL.RequestURI(), r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		for name, values := range r.Header {
			req.Header[name] = values
		}

		resp, err := client.Do(req)
		if err != nil {
			logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Upstream request failed")
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for name, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response body")
		}
	}
}
