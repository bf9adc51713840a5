// Package service exposes the catalog read operations: bounded hierarchy
// windows and composed listing pages, cached per request shape.
package service

import (
	"context"
	stderrors "errors"
	"log"
	"time"

	apperrors "github.com/dawitj/gebeya/internal/errors"
	"github.com/dawitj/gebeya/internal/platform/cache"
	"github.com/dawitj/gebeya/internal/services/catalog/hierarchy"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// Config tunes windows, cache lifetimes, and decoration defaults.
type Config struct {
	// PerPage is the catalog post window size.
	PerPage int
	// CountryLimit, CityLimit, and SubcityLimit apply when a request
	// leaves the corresponding bound unset.
	CountryLimit int
	CityLimit    int
	SubcityLimit int

	// WindowTTL caches hierarchy windows; CatalogTTL caches composed
	// pages; VisitorTTL suppresses repeat visitor-counter writes.
	WindowTTL  time.Duration
	CatalogTTL time.Duration
	VisitorTTL time.Duration

	// PlaceholderImage substitutes for missing or absent thumbnails.
	PlaceholderImage string
	// VisitTimeout bounds the detached visitor-counter write.
	VisitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PerPage <= 0 {
		c.PerPage = 10
	}
	if c.CountryLimit <= 0 {
		c.CountryLimit = 10
	}
	if c.CityLimit <= 0 {
		c.CityLimit = 10
	}
	if c.SubcityLimit <= 0 {
		c.SubcityLimit = 10
	}
	if c.WindowTTL <= 0 {
		c.WindowTTL = time.Minute
	}
	if c.CatalogTTL <= 0 {
		c.CatalogTTL = 30 * time.Second
	}
	if c.VisitorTTL <= 0 {
		c.VisitorTTL = 24 * time.Hour
	}
	if c.PlaceholderImage == "" {
		c.PlaceholderImage = "assets/img/placeholder.png"
	}
	if c.VisitTimeout <= 0 {
		c.VisitTimeout = 5 * time.Second
	}
	return c
}

// Service implements the catalog read operations.
type Service struct {
	store  storage.Store
	pager  *hierarchy.Pager
	cache  cache.Cache
	images ImageProbe
	cfg    Config
	clock  func() time.Time
}

// New wires a catalog service over its collaborators.
func New(store storage.Store, c cache.Cache, images ImageProbe, cfg Config) *Service {
	return &Service{
		store:  store,
		pager:  hierarchy.NewPager(store),
		cache:  c,
		images: images,
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
	}
}

// cachedFetch probes the cache for key and falls back to fetch on a miss,
// writing the result back with ttl. Cache failures degrade to a plain
// fetch; the cache never decides an answer, only its latency.
func cachedFetch[T any](ctx context.Context, s *Service, name string, condition any, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	key, err := cache.Key(name, condition)
	if err != nil {
		log.Printf("derive %s cache key: %v", name, err)
		return fetch(ctx)
	}

	found, cached, err := cache.GetContext[T](ctx, s.cache, key)
	if err != nil {
		log.Printf("read %s cache: %v", name, err)
	} else if found {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	if err := s.cache.SetContext(ctx, key, value, ttl); err != nil {
		log.Printf("write %s cache: %v", name, err)
	}
	return value, nil
}

// mapStoreErr translates storage failures into the typed taxonomy:
// missing records are distinguishable from fetch failures so callers can
// render "no such location" versus "try again".
func mapStoreErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, message+" not found", err)
	}
	return apperrors.Wrap(apperrors.KindUnavailable, "fetch "+message, err)
}

const visitDayFormat = "2006-01-02"

// countVisit records the caller in the daily visitor counter without
// blocking or failing the response. Dedup is two-layered: a cache probe
// keyed (ip, day) suppresses repeat writes cheaply, and the store upsert
// deduplicates on its primary key regardless. Lost updates under
// concurrent same-key requests are acceptable.
func (s *Service) countVisit(ip string) {
	if ip == "" {
		return
	}
	day := s.clock().UTC().Format(visitDayFormat)
	key, err := cache.Key("visitor_day", visitCondition{IP: ip, Day: day})
	if err != nil {
		log.Printf("derive visitor cache key: %v", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.VisitTimeout)
		defer cancel()

		if found, _, err := s.cache.GetContext(ctx, key); err == nil && found {
			return
		}
		if err := s.store.RecordVisit(ctx, ip, day); err != nil {
			log.Printf("record visit for %s: %v", ip, err)
			return
		}
		if err := s.cache.SetContext(ctx, key, true, s.cfg.VisitorTTL); err != nil {
			log.Printf("cache visit for %s: %v", ip, err)
		}
	}()
}

type visitCondition struct {
	IP  string
	Day string
}

// CountVisitors returns the distinct visitor count for a day given as
// YYYY-MM-DD. An empty day means today.
func (s *Service) CountVisitors(ctx context.Context, day string) (int, error) {
	if day == "" {
		day = s.clock().UTC().Format(visitDayFormat)
	} else if _, err := time.Parse(visitDayFormat, day); err != nil {
		return 0, apperrors.E(apperrors.KindInvalidInput, "day must be formatted YYYY-MM-DD")
	}
	total, err := s.store.CountVisits(ctx, day)
	if err != nil {
		return 0, mapStoreErr(err, "visitor count")
	}
	return total, nil
}
