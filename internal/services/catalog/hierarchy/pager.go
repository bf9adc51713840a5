// Package hierarchy renders bounded, nested windows over the location
// tree without issuing one query per node.
package hierarchy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// Page describes one level's position within its full result set.
// NextPage is 0 when there is no further page.
type Page struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	NextPage    int `json:"nextPage"`
}

// CityNode is a city annotated with its first-page subcity preview.
type CityNode struct {
	City             storage.City      `json:"city"`
	Subcities        []storage.Subcity `json:"subcities"`
	HasMoreSubcities bool              `json:"hasMoreSubcities"`
	SubcityPages     Page              `json:"subcityPages"`
}

// CountryNode is a country annotated with its first-page city preview.
type CountryNode struct {
	Country       storage.Country `json:"country"`
	Cities        []CityNode      `json:"cities"`
	HasMoreCities bool            `json:"hasMoreCities"`
	CityPages     Page            `json:"cityPages"`
}

// Window is one combined hierarchy page. Nested levels always show their
// first window; deep navigation goes through the dedicated Cities and
// Subcities calls.
type Window struct {
	Countries  []CountryNode `json:"countries"`
	Pagination Page          `json:"pagination"`
}

// CountryList is one flat page of countries.
type CountryList struct {
	Countries  []storage.Country `json:"countries"`
	Pagination Page              `json:"pagination"`
}

// CityList is one page of a single country's cities, each pre-nested with
// its first-page subcity preview.
type CityList struct {
	Cities     []CityNode `json:"cities"`
	Pagination Page       `json:"pagination"`
}

// SubcityList is one flat page of a single city's subcities.
type SubcityList struct {
	Subcities  []storage.Subcity `json:"subcities"`
	Pagination Page              `json:"pagination"`
}

// WindowRequest bounds one combined hierarchy page.
type WindowRequest struct {
	CountryPage  int
	CountryLimit int
	CityLimit    int
	SubcityLimit int
}

// Pager reads bounded hierarchy windows from a location store.
type Pager struct {
	locations storage.LocationStore
}

// NewPager returns a pager over the given location store.
func NewPager(locations storage.LocationStore) *Pager {
	return &Pager{locations: locations}
}

// Window assembles one combined hierarchy page: a window of countries,
// each with its first CityLimit cities, each with its first SubcityLimit
// subcities. Three query waves replace per-node fan-out: a windowed
// country select, a rank-window over cities, and a rank-window over
// subcities, with grouped counts alongside for totals. The window is
// all-or-nothing; any query failure fails the request.
func (p *Pager) Window(ctx context.Context, req WindowRequest) (Window, error) {
	var (
		countries      []storage.Country
		totalCountries int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		countries, err = p.locations.ListCountries(gctx, req.CountryLimit, (req.CountryPage-1)*req.CountryLimit)
		return err
	})
	g.Go(func() error {
		var err error
		totalCountries, err = p.locations.CountCountries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Window{}, fmt.Errorf("load country window: %w", err)
	}

	window := Window{
		Countries:  make([]CountryNode, 0, len(countries)),
		Pagination: makePage(req.CountryPage, totalCountries, req.CountryLimit),
	}
	if len(countries) == 0 {
		return window, nil
	}

	countryIDs := make([]int64, len(countries))
	for i, country := range countries {
		countryIDs[i] = country.ID
	}

	cities, cityTotals, err := p.cityPreviews(ctx, countryIDs, req.CityLimit, req.SubcityLimit)
	if err != nil {
		return Window{}, err
	}

	for _, country := range countries {
		node := CountryNode{
			Country:       country,
			Cities:        cities[country.ID],
			HasMoreCities: cityTotals[country.ID] > req.CityLimit,
			CityPages:     previewPage(cityTotals[country.ID], req.CityLimit),
		}
		if node.Cities == nil {
			node.Cities = []CityNode{}
		}
		window.Countries = append(window.Countries, node)
	}
	return window, nil
}

// Countries returns one flat page of countries.
func (p *Pager) Countries(ctx context.Context, page, limit int) (CountryList, error) {
	var (
		countries []storage.Country
		total     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		countries, err = p.locations.ListCountries(gctx, limit, (page-1)*limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.locations.CountCountries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CountryList{}, fmt.Errorf("load more countries: %w", err)
	}
	if countries == nil {
		countries = []storage.Country{}
	}
	return CountryList{Countries: countries, Pagination: makePage(page, total, limit)}, nil
}

// Cities returns one page of a country's cities, each carrying its
// first-page subcity preview. The parent country must exist.
func (p *Pager) Cities(ctx context.Context, countryID int64, page, cityLimit, subcityLimit int) (CityList, error) {
	var (
		cities []storage.City
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := p.locations.GetCountry(gctx, countryID)
		return err
	})
	g.Go(func() error {
		var err error
		cities, err = p.locations.ListCities(gctx, countryID, cityLimit, (page-1)*cityLimit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.locations.CountCities(gctx, countryID)
		return err
	})
	if err := g.Wait(); err != nil {
		return CityList{}, fmt.Errorf("load more cities: %w", err)
	}

	nodes, err := p.cityNodes(ctx, cities, subcityLimit)
	if err != nil {
		return CityList{}, err
	}
	return CityList{Cities: nodes, Pagination: makePage(page, total, cityLimit)}, nil
}

// Subcities returns one flat page of a city's subcities. The parent city
// must exist.
func (p *Pager) Subcities(ctx context.Context, cityID int64, page, limit int) (SubcityList, error) {
	var (
		subcities []storage.Subcity
		total     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := p.locations.GetCity(gctx, cityID)
		return err
	})
	g.Go(func() error {
		var err error
		subcities, err = p.locations.ListSubcities(gctx, cityID, limit, (page-1)*limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.locations.CountSubcities(gctx, cityID)
		return err
	})
	if err := g.Wait(); err != nil {
		return SubcityList{}, fmt.Errorf("load more subcities: %w", err)
	}
	if subcities == nil {
		subcities = []storage.Subcity{}
	}
	return SubcityList{Subcities: subcities, Pagination: makePage(page, total, limit)}, nil
}

// cityPreviews fetches first-page city windows plus subcity previews for
// an exact country id set and groups them by country in fetch order.
func (p *Pager) cityPreviews(ctx context.Context, countryIDs []int64, cityLimit, subcityLimit int) (map[int64][]CityNode, map[int64]int, error) {
	var (
		cities     []storage.City
		cityTotals map[int64]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cities, err = p.locations.LeadingCitiesByCountry(gctx, countryIDs, cityLimit)
		return err
	})
	g.Go(func() error {
		var err error
		cityTotals, err = p.locations.CountCitiesByCountry(gctx, countryIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load city previews: %w", err)
	}

	nodes, err := p.cityNodes(ctx, cities, subcityLimit)
	if err != nil {
		return nil, nil, err
	}

	grouped := make(map[int64][]CityNode, len(countryIDs))
	for _, node := range nodes {
		grouped[node.City.CountryID] = append(grouped[node.City.CountryID], node)
	}
	return grouped, cityTotals, nil
}

// cityNodes attaches first-page subcity previews to an exact city set.
func (p *Pager) cityNodes(ctx context.Context, cities []storage.City, subcityLimit int) ([]CityNode, error) {
	nodes := make([]CityNode, 0, len(cities))
	if len(cities) == 0 {
		return nodes, nil
	}

	cityIDs := make([]int64, len(cities))
	for i, city := range cities {
		cityIDs[i] = city.ID
	}

	var (
		subcities     []storage.Subcity
		subcityTotals map[int64]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subcities, err = p.locations.LeadingSubcitiesByCity(gctx, cityIDs, subcityLimit)
		return err
	})
	g.Go(func() error {
		var err error
		subcityTotals, err = p.locations.CountSubcitiesByCity(gctx, cityIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load subcity previews: %w", err)
	}

	subcitiesByCity := make(map[int64][]storage.Subcity, len(cityIDs))
	for _, subcity := range subcities {
		subcitiesByCity[subcity.CityID] = append(subcitiesByCity[subcity.CityID], subcity)
	}

	for _, city := range cities {
		node := CityNode{
			City:             city,
			Subcities:        subcitiesByCity[city.ID],
			HasMoreSubcities: subcityTotals[city.ID] > subcityLimit,
			SubcityPages:     previewPage(subcityTotals[city.ID], subcityLimit),
		}
		if node.Subcities == nil {
			node.Subcities = []storage.Subcity{}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// makePage builds a pagination descriptor for the given position.
func makePage(current, total, limit int) Page {
	page := Page{CurrentPage: current, TotalPages: totalPages(total, limit)}
	if current < page.TotalPages {
		page.NextPage = current + 1
	}
	return page
}

// previewPage describes the nested level's first window.
func previewPage(total, limit int) Page {
	return makePage(1, total, limit)
}

func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
