package service

import (
	"context"

	apperrors "github.com/dawitj/gebeya/internal/errors"
	"github.com/dawitj/gebeya/internal/services/catalog/hierarchy"
)

// HierarchyRequest bounds one combined hierarchy window. Zero limits fall
// back to the service defaults; negative values are rejected.
type HierarchyRequest struct {
	CountryPage  int
	CountryLimit int
	CityLimit    int
	SubcityLimit int
	CallerIP     string
}

type hierarchyCondition struct {
	CountryPage  int
	CountryLimit int
	CityLimit    int
	SubcityLimit int
}

// GetHierarchyWindow returns one bounded, nested location window. Nested
// levels always preview their first page; deep navigation goes through
// LoadMoreCities and LoadMoreSubcities.
func (s *Service) GetHierarchyWindow(ctx context.Context, req HierarchyRequest) (hierarchy.Window, error) {
	if req.CountryPage <= 0 {
		return hierarchy.Window{}, apperrors.E(apperrors.KindInvalidInput, "country page must be positive")
	}
	if req.CountryLimit < 0 || req.CityLimit < 0 || req.SubcityLimit < 0 {
		return hierarchy.Window{}, apperrors.E(apperrors.KindInvalidInput, "limits must not be negative")
	}
	if req.CountryLimit == 0 {
		req.CountryLimit = s.cfg.CountryLimit
	}
	if req.CityLimit == 0 {
		req.CityLimit = s.cfg.CityLimit
	}
	if req.SubcityLimit == 0 {
		req.SubcityLimit = s.cfg.SubcityLimit
	}

	condition := hierarchyCondition{
		CountryPage:  req.CountryPage,
		CountryLimit: req.CountryLimit,
		CityLimit:    req.CityLimit,
		SubcityLimit: req.SubcityLimit,
	}
	return cachedFetch(ctx, s, "hierarchy_window", condition, s.cfg.WindowTTL, func(ctx context.Context) (hierarchy.Window, error) {
		window, err := s.pager.Window(ctx, hierarchy.WindowRequest{
			CountryPage:  req.CountryPage,
			CountryLimit: req.CountryLimit,
			CityLimit:    req.CityLimit,
			SubcityLimit: req.SubcityLimit,
		})
		if err != nil {
			return hierarchy.Window{}, mapStoreErr(err, "hierarchy window")
		}
		s.countVisit(req.CallerIP)
		return window, nil
	})
}

type countriesCondition struct {
	Page  int
	Limit int
}

// LoadMoreCountries returns one flat page of countries.
func (s *Service) LoadMoreCountries(ctx context.Context, page, limit int) (hierarchy.CountryList, error) {
	if page <= 0 {
		return hierarchy.CountryList{}, apperrors.E(apperrors.KindInvalidInput, "page must be positive")
	}
	if limit < 0 {
		return hierarchy.CountryList{}, apperrors.E(apperrors.KindInvalidInput, "limit must not be negative")
	}
	if limit == 0 {
		limit = s.cfg.CountryLimit
	}

	condition := countriesCondition{Page: page, Limit: limit}
	return cachedFetch(ctx, s, "more_countries", condition, s.cfg.WindowTTL, func(ctx context.Context) (hierarchy.CountryList, error) {
		list, err := s.pager.Countries(ctx, page, limit)
		if err != nil {
			return hierarchy.CountryList{}, mapStoreErr(err, "countries")
		}
		return list, nil
	})
}

type citiesCondition struct {
	CountryID    int64
	Page         int
	CityLimit    int
	SubcityLimit int
}

// LoadMoreCities returns one page of a country's cities, each pre-nested
// with its own first-page subcity preview.
func (s *Service) LoadMoreCities(ctx context.Context, countryID int64, page, cityLimit, subcityLimit int, callerIP string) (hierarchy.CityList, error) {
	if countryID <= 0 {
		return hierarchy.CityList{}, apperrors.E(apperrors.KindInvalidInput, "country id is required")
	}
	if page <= 0 {
		return hierarchy.CityList{}, apperrors.E(apperrors.KindInvalidInput, "page must be positive")
	}
	if cityLimit < 0 || subcityLimit < 0 {
		return hierarchy.CityList{}, apperrors.E(apperrors.KindInvalidInput, "limits must not be negative")
	}
	if cityLimit == 0 {
		cityLimit = s.cfg.CityLimit
	}
	if subcityLimit == 0 {
		subcityLimit = s.cfg.SubcityLimit
	}

	condition := citiesCondition{CountryID: countryID, Page: page, CityLimit: cityLimit, SubcityLimit: subcityLimit}
	return cachedFetch(ctx, s, "more_cities", condition, s.cfg.WindowTTL, func(ctx context.Context) (hierarchy.CityList, error) {
		list, err := s.pager.Cities(ctx, countryID, page, cityLimit, subcityLimit)
		if err != nil {
			return hierarchy.CityList{}, mapStoreErr(err, "cities for country")
		}
		s.countVisit(callerIP)
		return list, nil
	})
}

type subcitiesCondition struct {
	CityID int64
	Page   int
	Limit  int
}

// LoadMoreSubcities returns one flat page of a city's subcities.
func (s *Service) LoadMoreSubcities(ctx context.Context, cityID int64, page, limit int, callerIP string) (hierarchy.SubcityList, error) {
	if cityID <= 0 {
		return hierarchy.SubcityList{}, apperrors.E(apperrors.KindInvalidInput, "city id is required")
	}
	if page <= 0 {
		return hierarchy.SubcityList{}, apperrors.E(apperrors.KindInvalidInput, "page must be positive")
	}
	if limit < 0 {
		return hierarchy.SubcityList{}, apperrors.E(apperrors.KindInvalidInput, "limit must not be negative")
	}
	if limit == 0 {
		limit = s.cfg.SubcityLimit
	}

	condition := subcitiesCondition{CityID: cityID, Page: page, Limit: limit}
	return cachedFetch(ctx, s, "more_subcities", condition, s.cfg.WindowTTL, func(ctx context.Context) (hierarchy.SubcityList, error) {
		list, err := s.pager.Subcities(ctx, cityID, page, limit)
		if err != nil {
			return hierarchy.SubcityList{}, mapStoreErr(err, "subcities for city")
		}
		s.countVisit(callerIP)
		return list, nil
	})
}
