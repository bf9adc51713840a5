package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/dawitj/gebeya/internal/errors"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// fakeStore serves the catalog read contracts from in-memory slices and
// counts calls so tests can observe cache behavior.
type fakeStore struct {
	mu sync.Mutex

	countries     []storage.Country
	cities        []storage.City
	subcities     []storage.Subcity
	subcategories []storage.Subcategory
	posts         []storage.Post
	pinned        []storage.PinnedAd
	periodic      []storage.PeriodicAd
	images        map[int64]string

	listCountryCalls int
	listPostCalls    int
	visits           []string
	visitRecorded    chan struct{}

	failPosts error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		images:        make(map[int64]string),
		visitRecorded: make(chan struct{}, 16),
	}
}

func (f *fakeStore) ListCountries(_ context.Context, limit, offset int) ([]storage.Country, error) {
	f.mu.Lock()
	f.listCountryCalls++
	f.mu.Unlock()
	return sliceWindow(f.countries, limit, offset), nil
}

func (f *fakeStore) CountCountries(_ context.Context) (int, error) {
	return len(f.countries), nil
}

func (f *fakeStore) GetCountry(_ context.Context, id int64) (storage.Country, error) {
	for _, c := range f.countries {
		if c.ID == id {
			return c, nil
		}
	}
	return storage.Country{}, storage.ErrNotFound
}

func (f *fakeStore) ListCities(_ context.Context, countryID int64, limit, offset int) ([]storage.City, error) {
	var matched []storage.City
	for _, c := range f.cities {
		if c.CountryID == countryID {
			matched = append(matched, c)
		}
	}
	return sliceWindow(matched, limit, offset), nil
}

func (f *fakeStore) CountCities(_ context.Context, countryID int64) (int, error) {
	total := 0
	for _, c := range f.cities {
		if c.CountryID == countryID {
			total++
		}
	}
	return total, nil
}

func (f *fakeStore) GetCity(_ context.Context, id int64) (storage.City, error) {
	for _, c := range f.cities {
		if c.ID == id {
			return c, nil
		}
	}
	return storage.City{}, storage.ErrNotFound
}

func (f *fakeStore) ListSubcities(_ context.Context, cityID int64, limit, offset int) ([]storage.Subcity, error) {
	var matched []storage.Subcity
	for _, s := range f.subcities {
		if s.CityID == cityID {
			matched = append(matched, s)
		}
	}
	return sliceWindow(matched, limit, offset), nil
}

func (f *fakeStore) CountSubcities(_ context.Context, cityID int64) (int, error) {
	total := 0
	for _, s := range f.subcities {
		if s.CityID == cityID {
			total++
		}
	}
	return total, nil
}

func (f *fakeStore) GetSubcity(_ context.Context, id int64) (storage.Subcity, error) {
	for _, s := range f.subcities {
		if s.ID == id {
			return s, nil
		}
	}
	return storage.Subcity{}, storage.ErrNotFound
}

func (f *fakeStore) LeadingCitiesByCountry(_ context.Context, countryIDs []int64, perCountry int) ([]storage.City, error) {
	if len(countryIDs) == 0 {
		return nil, storage.ErrEmptyIDSet
	}
	var out []storage.City
	for _, id := range countryIDs {
		taken := 0
		for _, c := range f.cities {
			if c.CountryID == id && taken < perCountry {
				out = append(out, c)
				taken++
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CountCitiesByCountry(_ context.Context, countryIDs []int64) (map[int64]int, error) {
	if len(countryIDs) == 0 {
		return nil, storage.ErrEmptyIDSet
	}
	totals := make(map[int64]int)
	for _, id := range countryIDs {
		for _, c := range f.cities {
			if c.CountryID == id {
				totals[id]++
			}
		}
	}
	return totals, nil
}

func (f *fakeStore) LeadingSubcitiesByCity(_ context.Context, cityIDs []int64, perCity int) ([]storage.Subcity, error) {
	if len(cityIDs) == 0 {
		return nil, storage.ErrEmptyIDSet
	}
	var out []storage.Subcity
	for _, id := range cityIDs {
		taken := 0
		for _, s := range f.subcities {
			if s.CityID == id && taken < perCity {
				out = append(out, s)
				taken++
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CountSubcitiesByCity(_ context.Context, cityIDs []int64) (map[int64]int, error) {
	if len(cityIDs) == 0 {
		return nil, storage.ErrEmptyIDSet
	}
	totals := make(map[int64]int)
	for _, id := range cityIDs {
		for _, s := range f.subcities {
			if s.CityID == id {
				totals[id]++
			}
		}
	}
	return totals, nil
}

func (f *fakeStore) GetSubcategory(_ context.Context, id int64) (storage.Subcategory, error) {
	for _, s := range f.subcategories {
		if s.ID == id {
			return s, nil
		}
	}
	return storage.Subcategory{}, storage.ErrNotFound
}

func (f *fakeStore) ListPosts(_ context.Context, q storage.PostQuery) ([]storage.Post, error) {
	f.mu.Lock()
	f.listPostCalls++
	f.mu.Unlock()
	if f.failPosts != nil {
		return nil, f.failPosts
	}
	return sliceWindow(f.posts, q.Limit, q.Offset), nil
}

func (f *fakeStore) CountPosts(_ context.Context, q storage.PostQuery) (int, error) {
	if f.failPosts != nil {
		return 0, f.failPosts
	}
	return len(f.posts), nil
}

func (f *fakeStore) ListPinnedAds(_ context.Context, limit, offset int) ([]storage.PinnedAd, error) {
	return sliceWindow(f.pinned, limit, offset), nil
}

func (f *fakeStore) ListPeriodicAds(_ context.Context, kind storage.AdKind, limit, offset int) ([]storage.PeriodicAd, error) {
	var matched []storage.PeriodicAd
	for _, ad := range f.periodic {
		if ad.Kind == kind {
			matched = append(matched, ad)
		}
	}
	return sliceWindow(matched, limit, offset), nil
}

func (f *fakeStore) FirstImagesByGroup(_ context.Context, groupIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(groupIDs))
	for _, id := range groupIDs {
		if filename, ok := f.images[id]; ok {
			out[id] = filename
		}
	}
	return out, nil
}

// RecordVisit mirrors the store's upsert: repeat (ip, day) pairs are
// accepted silently and change nothing.
func (f *fakeStore) RecordVisit(_ context.Context, ip, day string) error {
	key := ip + "|" + day
	f.mu.Lock()
	for _, v := range f.visits {
		if v == key {
			f.mu.Unlock()
			return nil
		}
	}
	f.visits = append(f.visits, key)
	f.mu.Unlock()
	select {
	case f.visitRecorded <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeStore) CountVisits(_ context.Context, day string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, v := range f.visits {
		if len(v) > len(day) && v[len(v)-len(day):] == day {
			total++
		}
	}
	return total, nil
}

func (f *fakeStore) visitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits)
}

func (f *fakeStore) postCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listPostCalls
}

func (f *fakeStore) countryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCountryCalls
}

func sliceWindow[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

var _ storage.Store = (*fakeStore)(nil)

// memCache is a TTL-less map cache. When broken, every operation fails.
type memCache struct {
	mu      sync.Mutex
	entries map[string]any
	broken  bool
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]any)}
}

var errCacheBroken = errors.New("cache is broken")

func (c *memCache) GetContext(_ context.Context, key string) (bool, any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return false, nil, errCacheBroken
	}
	val, ok := c.entries[key]
	return ok, val, nil
}

func (c *memCache) SetContext(_ context.Context, key string, val any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errCacheBroken
	}
	c.entries[key] = val
	return nil
}

func (c *memCache) ExpireContext(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok, nil
}

func (c *memCache) CloseContext(context.Context) error { return nil }

// allowProbe reports every image as present; denyProbe as missing.
type allowProbe struct{}

func (allowProbe) Exists(string) bool { return true }

type denyProbe struct{}

func (denyProbe) Exists(string) bool { return false }

func locationFixture() *fakeStore {
	store := newFakeStore()
	store.countries = []storage.Country{{ID: 1, Name: "Ethiopia"}, {ID: 2, Name: "Kenya"}}
	store.cities = []storage.City{
		{ID: 1, Name: "Addis Ababa", CountryID: 1},
		{ID: 2, Name: "Adama", CountryID: 1},
		{ID: 3, Name: "Bahir Dar", CountryID: 1},
		{ID: 4, Name: "Nairobi", CountryID: 2},
	}
	for i := int64(1); i <= 6; i++ {
		store.subcities = append(store.subcities, storage.Subcity{ID: i, Name: "subcity", CityID: 1})
	}
	return store
}

func newTestService(store *fakeStore, c *memCache) *Service {
	return New(store, c, allowProbe{}, Config{PerPage: 10})
}

func TestGetHierarchyWindowRejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(locationFixture(), newMemCache())

	_, err := svc.GetHierarchyWindow(context.Background(), HierarchyRequest{CountryPage: 0})
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("zero page error = %v, want invalid input", err)
	}
	_, err = svc.GetHierarchyWindow(context.Background(), HierarchyRequest{CountryPage: 1, CityLimit: -1})
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("negative limit error = %v, want invalid input", err)
	}
}

func TestGetHierarchyWindowServesRepeatFromCache(t *testing.T) {
	t.Parallel()

	store := locationFixture()
	svc := newTestService(store, newMemCache())
	req := HierarchyRequest{CountryPage: 1, CountryLimit: 2, CityLimit: 2, SubcityLimit: 2}

	first, err := svc.GetHierarchyWindow(context.Background(), req)
	if err != nil {
		t.Fatalf("first window: %v", err)
	}
	second, err := svc.GetHierarchyWindow(context.Background(), req)
	if err != nil {
		t.Fatalf("second window: %v", err)
	}

	if store.countryCalls() != 1 {
		t.Fatalf("country list calls = %d, want 1", store.countryCalls())
	}
	if len(first.Countries) != len(second.Countries) {
		t.Fatalf("cached window differs: %d vs %d countries", len(first.Countries), len(second.Countries))
	}
}

func TestGetHierarchyWindowDegradesWhenCacheFails(t *testing.T) {
	t.Parallel()

	store := locationFixture()
	brokenCache := newMemCache()
	brokenCache.broken = true
	svc := newTestService(store, brokenCache)

	got, err := svc.GetHierarchyWindow(context.Background(), HierarchyRequest{CountryPage: 1})
	if err != nil {
		t.Fatalf("window with broken cache: %v", err)
	}
	if len(got.Countries) != 2 {
		t.Fatalf("countries = %d, want 2", len(got.Countries))
	}
}

func TestLoadMoreCountriesDefaultsLimit(t *testing.T) {
	t.Parallel()

	svc := newTestService(locationFixture(), newMemCache())
	got, err := svc.LoadMoreCountries(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("countries: %v", err)
	}
	if len(got.Countries) != 2 {
		t.Fatalf("countries = %d, want 2", len(got.Countries))
	}
	if got.Pagination.TotalPages != 1 {
		t.Fatalf("total pages = %d, want 1", got.Pagination.TotalPages)
	}
}

func TestLoadMoreCitiesUnknownCountry(t *testing.T) {
	t.Parallel()

	svc := newTestService(locationFixture(), newMemCache())
	_, err := svc.LoadMoreCities(context.Background(), 99, 1, 0, 0, "")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestLoadMoreSubcitiesSecondPage(t *testing.T) {
	t.Parallel()

	svc := newTestService(locationFixture(), newMemCache())
	got, err := svc.LoadMoreSubcities(context.Background(), 1, 2, 5, "")
	if err != nil {
		t.Fatalf("subcities: %v", err)
	}
	if len(got.Subcities) != 1 {
		t.Fatalf("subcities = %d, want 1", len(got.Subcities))
	}
	if got.Subcities[0].ID != 6 {
		t.Fatalf("subcity id = %d, want 6", got.Subcities[0].ID)
	}
	if got.Pagination.CurrentPage != 2 || got.Pagination.NextPage != 0 {
		t.Fatalf("pagination = %+v, want current 2, next 0", got.Pagination)
	}
}

func TestVisitorCounterRecordsOncePerIPDay(t *testing.T) {
	t.Parallel()

	store := locationFixture()
	svc := newTestService(store, newMemCache())

	_, err := svc.LoadMoreSubcities(context.Background(), 1, 1, 2, "203.0.113.7")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	select {
	case <-store.visitRecorded:
	case <-time.After(2 * time.Second):
		t.Fatal("visit was never recorded")
	}

	// A different page forces a fresh fetch, but the visitor cache entry
	// suppresses a second write for the same ip and day.
	_, err = svc.LoadMoreSubcities(context.Background(), 1, 2, 2, "203.0.113.7")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	select {
	case <-store.visitRecorded:
		t.Fatal("visit recorded twice for same ip and day")
	case <-time.After(200 * time.Millisecond):
	}
	if store.visitCount() != 1 {
		t.Fatalf("visits = %d, want 1", store.visitCount())
	}
}

func TestCountVisitorsValidatesDay(t *testing.T) {
	t.Parallel()

	svc := newTestService(locationFixture(), newMemCache())
	if _, err := svc.CountVisitors(context.Background(), "April 5"); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("error = %v, want invalid input", err)
	}
}

func TestCountVisitorsReturnsDailyTotal(t *testing.T) {
	t.Parallel()

	store := locationFixture()
	svc := newTestService(store, newMemCache())

	if err := store.RecordVisit(context.Background(), "203.0.113.7", "2026-04-05"); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if err := store.RecordVisit(context.Background(), "203.0.113.8", "2026-04-05"); err != nil {
		t.Fatalf("record visit: %v", err)
	}

	total, err := svc.CountVisitors(context.Background(), "2026-04-05")
	if err != nil {
		t.Fatalf("count visitors: %v", err)
	}
	if total != 2 {
		t.Fatalf("visitors = %d, want 2", total)
	}
}

func TestVisitorCounterSkipsEmptyIP(t *testing.T) {
	t.Parallel()

	store := locationFixture()
	svc := newTestService(store, newMemCache())

	if _, err := svc.LoadMoreSubcities(context.Background(), 1, 1, 2, ""); err != nil {
		t.Fatalf("call: %v", err)
	}
	select {
	case <-store.visitRecorded:
		t.Fatal("visit recorded without caller ip")
	case <-time.After(100 * time.Millisecond):
	}
}
