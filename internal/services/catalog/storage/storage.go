// Package storage defines read contracts for the catalog service.
//
// The relational store owns the durable entities; this subsystem only
// reads them, except for the best-effort visitor counter.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyIDSet indicates a grouped query was invoked with no parent ids.
	ErrEmptyIDSet = errors.New("id set is empty")
	// ErrInvalidWindow indicates a non-positive limit or negative offset.
	ErrInvalidWindow = errors.New("invalid limit/offset window")
)

// Country is the top level of the location tree.
type Country struct {
	ID   int64
	Name string
}

// City belongs to exactly one country.
type City struct {
	ID        int64
	Name      string
	CountryID int64
}

// Subcity belongs to exactly one city and is the location leaf posts
// attach to.
type Subcity struct {
	ID     int64
	Name   string
	CityID int64
}

// Category is the top level of the category tree.
type Category struct {
	ID   int64
	Name string
}

// Subcategory belongs to exactly one category and is the category leaf
// posts attach to.
type Subcategory struct {
	ID         int64
	Name       string
	CategoryID int64
}

// Post is one classified listing attached to a subcity and subcategory.
type Post struct {
	ID            int64
	Title         string
	Description   string
	SubcityID     int64
	SubcategoryID int64
	CreatedAt     time.Time
	Active        bool
	FeaturedUntil *time.Time
	ImageGroupID  int64
	// Featured is derived at query time from FeaturedUntil; it is never
	// stored.
	Featured bool
}

// PinnedAd is supplementary content with an explicit 1-based target slot
// in the composed listing.
type PinnedAd struct {
	ID       int64
	Position int
	Content  string
}

// AdKind selects which rotating-ad variant is active site-wide.
type AdKind string

const (
	// AdKindPost serves house rotating ads.
	AdKindPost AdKind = "post_ads"
	// AdKindGoogle serves the external rotating-ad variant.
	AdKindGoogle AdKind = "google_ads"
)

// Valid reports whether the kind is one of the two supported variants.
func (k AdKind) Valid() bool {
	return k == AdKindPost || k == AdKindGoogle
}

// PeriodicAd is supplementary content inserted at a fixed stride rather
// than an explicit position.
type PeriodicAd struct {
	ID      int64
	Kind    AdKind
	Content string
}

// PostQuery filters one windowed page of posts.
type PostQuery struct {
	SubcityID     int64
	SubcategoryID int64
	// Keyword, when non-empty, must match title or description.
	Keyword string
	Limit   int
	Offset  int
	// Now anchors the featured evaluation; zero means time.Now.
	Now time.Time
}

// LocationStore reads the country/city/subcity tree.
type LocationStore interface {
	ListCountries(ctx context.Context, limit, offset int) ([]Country, error)
	CountCountries(ctx context.Context) (int, error)
	GetCountry(ctx context.Context, id int64) (Country, error)

	ListCities(ctx context.Context, countryID int64, limit, offset int) ([]City, error)
	CountCities(ctx context.Context, countryID int64) (int, error)
	GetCity(ctx context.Context, id int64) (City, error)

	ListSubcities(ctx context.Context, cityID int64, limit, offset int) ([]Subcity, error)
	CountSubcities(ctx context.Context, cityID int64) (int, error)
	GetSubcity(ctx context.Context, id int64) (Subcity, error)

	// LeadingCitiesByCountry returns, for every country id in the set, its
	// perCountry lowest-id cities in one round trip.
	LeadingCitiesByCountry(ctx context.Context, countryIDs []int64, perCountry int) ([]City, error)
	// CountCitiesByCountry returns each country's true total city count.
	CountCitiesByCountry(ctx context.Context, countryIDs []int64) (map[int64]int, error)

	LeadingSubcitiesByCity(ctx context.Context, cityIDs []int64, perCity int) ([]Subcity, error)
	CountSubcitiesByCity(ctx context.Context, cityIDs []int64) (map[int64]int, error)
}

// CategoryStore reads the category tree.
type CategoryStore interface {
	GetSubcategory(ctx context.Context, id int64) (Subcategory, error)
}

// PostStore reads windowed post pages ordered featured-first then newest.
type PostStore interface {
	ListPosts(ctx context.Context, q PostQuery) ([]Post, error)
	CountPosts(ctx context.Context, q PostQuery) (int, error)
}

// AdStore reads supplementary ad streams.
type AdStore interface {
	ListPinnedAds(ctx context.Context, limit, offset int) ([]PinnedAd, error)
	ListPeriodicAds(ctx context.Context, kind AdKind, limit, offset int) ([]PeriodicAd, error)
}

// ImageStore resolves the first image filename per image group.
type ImageStore interface {
	FirstImagesByGroup(ctx context.Context, groupIDs []int64) (map[int64]string, error)
}

// VisitStore records the best-effort site-visit counter, deduplicated by
// (ip, day).
type VisitStore interface {
	RecordVisit(ctx context.Context, ip, day string) error
	CountVisits(ctx context.Context, day string) (int, error)
}

// Store aggregates every read contract the catalog service depends on.
type Store interface {
	LocationStore
	CategoryStore
	PostStore
	AdStore
	ImageStore
	VisitStore
}
