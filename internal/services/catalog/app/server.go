// Package server wires the catalog runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dawitj/gebeya/internal/platform/cache"
	"github.com/dawitj/gebeya/internal/platform/config"
	"github.com/dawitj/gebeya/internal/services/catalog/api/httpapi"
	"github.com/dawitj/gebeya/internal/services/catalog/service"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
	catalogsqlite "github.com/dawitj/gebeya/internal/services/catalog/storage/sqlite"
)

type serverEnv struct {
	DBPath       string        `env:"GEBEYA_CATALOG_DB_PATH"`
	ImagesDir    string        `env:"GEBEYA_CATALOG_IMAGES_DIR" envDefault:"data/images"`
	CacheBackend string        `env:"GEBEYA_CATALOG_CACHE" envDefault:"memory"`
	RedisAddr    string        `env:"GEBEYA_CATALOG_REDIS_ADDR" envDefault:"localhost:6379"`
	WindowTTL    time.Duration `env:"GEBEYA_CATALOG_WINDOW_TTL" envDefault:"1m"`
	CatalogTTL   time.Duration `env:"GEBEYA_CATALOG_PAGE_TTL" envDefault:"30s"`
	AdKind       string        `env:"GEBEYA_CATALOG_AD_KIND" envDefault:"post_ads"`
	PerPage      int           `env:"GEBEYA_CATALOG_PER_PAGE" envDefault:"10"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "catalog.db")
	}
	return cfg
}

// Server hosts the catalog HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *catalogsqlite.Store
	cache      cache.Cache
}

// New creates a configured catalog server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured catalog server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openCatalogStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	requestCache, err := buildCache(env)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	adKind := storage.AdKind(env.AdKind)
	if !adKind.Valid() {
		log.Printf("unknown ad kind %q, falling back to %q", env.AdKind, storage.AdKindPost)
		adKind = storage.AdKindPost
	}

	svc := service.New(store, requestCache, service.DirProbe{Root: env.ImagesDir}, service.Config{
		PerPage:    env.PerPage,
		WindowTTL:  env.WindowTTL,
		CatalogTTL: env.CatalogTTL,
	})

	mux := http.NewServeMux()
	mux.Handle("/v1/", httpapi.New(svc, adKind))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: mux},
		store:      store,
		cache:      requestCache,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a catalog server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("catalog server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases catalog server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.cache != nil {
		if err := s.cache.CloseContext(context.Background()); err != nil {
			log.Printf("close catalog cache: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close catalog store: %v", err)
		}
	}
}

func buildCache(env serverEnv) (cache.Cache, error) {
	switch strings.ToLower(strings.TrimSpace(env.CacheBackend)) {
	case "", "memory":
		return cache.NewInMemory(context.Background()), nil
	case "redis":
		// A small in-process layer in front of Redis absorbs repeat reads
		// for hot request shapes within one instance.
		client := redis.NewClient(&redis.Options{Addr: env.RedisAddr})
		return cache.NewComposite(
			cache.NewInMemory(context.Background(), cache.WithDefaultTTL(30*time.Second)),
			cache.NewRedis(client,
				cache.WithPrefix("catalog"),
				cache.WithQueryTimeout(2*time.Second),
			),
		), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", env.CacheBackend)
	}
}

func openCatalogStore(path string) (*catalogsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := catalogsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog sqlite store: %w", err)
	}
	return store, nil
}
