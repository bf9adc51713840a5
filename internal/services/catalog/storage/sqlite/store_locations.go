package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// ListCountries returns one id-ordered window of countries.
func (s *Store) ListCountries(ctx context.Context, limit, offset int) ([]storage.Country, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(limit, offset); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name FROM countries ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	countries := make([]storage.Country, 0, limit)
	for rows.Next() {
		var country storage.Country
		if err := rows.Scan(&country.ID, &country.Name); err != nil {
			return nil, fmt.Errorf("list countries: %w", err)
		}
		countries = append(countries, country)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

// CountCountries returns the total country count.
func (s *Store) CountCountries(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count countries: %w", err)
	}
	return total, nil
}

// GetCountry returns one country by id.
func (s *Store) GetCountry(ctx context.Context, id int64) (storage.Country, error) {
	if err := s.ready(); err != nil {
		return storage.Country{}, err
	}
	var country storage.Country
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name FROM countries WHERE id = ?`,
		id,
	).Scan(&country.ID, &country.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Country{}, storage.ErrNotFound
		}
		return storage.Country{}, fmt.Errorf("get country: %w", err)
	}
	return country, nil
}

// ListCities returns one id-ordered window of a country's cities.
func (s *Store) ListCities(ctx context.Context, countryID int64, limit, offset int) ([]storage.City, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(limit, offset); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, country_id FROM cities WHERE country_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		countryID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()
	return scanCities(rows, limit)
}

// CountCities returns a country's total city count.
func (s *Store) CountCities(ctx context.Context, countryID int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var total int
	if err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM cities WHERE country_id = ?`,
		countryID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("count cities: %w", err)
	}
	return total, nil
}

// GetCity returns one city by id.
func (s *Store) GetCity(ctx context.Context, id int64) (storage.City, error) {
	if err := s.ready(); err != nil {
		return storage.City{}, err
	}
	var city storage.City
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, country_id FROM cities WHERE id = ?`,
		id,
	).Scan(&city.ID, &city.Name, &city.CountryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.City{}, storage.ErrNotFound
		}
		return storage.City{}, fmt.Errorf("get city: %w", err)
	}
	return city, nil
}

// ListSubcities returns one id-ordered window of a city's subcities.
func (s *Store) ListSubcities(ctx context.Context, cityID int64, limit, offset int) ([]storage.Subcity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(limit, offset); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, city_id FROM subcities WHERE city_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		cityID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list subcities: %w", err)
	}
	defer rows.Close()
	return scanSubcities(rows, limit)
}

// CountSubcities returns a city's total subcity count.
func (s *Store) CountSubcities(ctx context.Context, cityID int64) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var total int
	if err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM subcities WHERE city_id = ?`,
		cityID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("count subcities: %w", err)
	}
	return total, nil
}

// GetSubcity returns one subcity by id.
func (s *Store) GetSubcity(ctx context.Context, id int64) (storage.Subcity, error) {
	if err := s.ready(); err != nil {
		return storage.Subcity{}, err
	}
	var subcity storage.Subcity
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, city_id FROM subcities WHERE id = ?`,
		id,
	).Scan(&subcity.ID, &subcity.Name, &subcity.CityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Subcity{}, storage.ErrNotFound
		}
		return storage.Subcity{}, fmt.Errorf("get subcity: %w", err)
	}
	return subcity, nil
}

// LeadingCitiesByCountry returns the perCountry lowest-id cities for every
// country in the set using one rank-within-partition query.
func (s *Store) LeadingCitiesByCountry(ctx context.Context, countryIDs []int64, perCountry int) ([]storage.City, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(perCountry, 0); err != nil {
		return nil, err
	}
	set, args, err := inList(countryIDs)
	if err != nil {
		return nil, fmt.Errorf("leading cities: %w", err)
	}
	args = append(args, perCountry)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, country_id FROM (
		   SELECT id, name, country_id,
		          ROW_NUMBER() OVER (PARTITION BY country_id ORDER BY id ASC) AS sibling_rank
		     FROM cities
		    WHERE country_id IN `+set+`
		 )
		 WHERE sibling_rank <= ?
		 ORDER BY country_id ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("leading cities: %w", err)
	}
	defer rows.Close()
	return scanCities(rows, perCountry*len(countryIDs))
}

// CountCitiesByCountry returns each country's true total city count for the
// given id set.
func (s *Store) CountCitiesByCountry(ctx context.Context, countryIDs []int64) (map[int64]int, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	set, args, err := inList(countryIDs)
	if err != nil {
		return nil, fmt.Errorf("count cities by country: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT country_id, COUNT(*) FROM cities WHERE country_id IN `+set+` GROUP BY country_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("count cities by country: %w", err)
	}
	defer rows.Close()
	return scanGroupedCounts(rows, "count cities by country")
}

// LeadingSubcitiesByCity returns the perCity lowest-id subcities for every
// city in the set in one round trip.
func (s *Store) LeadingSubcitiesByCity(ctx context.Context, cityIDs []int64, perCity int) ([]storage.Subcity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(perCity, 0); err != nil {
		return nil, err
	}
	set, args, err := inList(cityIDs)
	if err != nil {
		return nil, fmt.Errorf("leading subcities: %w", err)
	}
	args = append(args, perCity)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, city_id FROM (
		   SELECT id, name, city_id,
		          ROW_NUMBER() OVER (PARTITION BY city_id ORDER BY id ASC) AS sibling_rank
		     FROM subcities
		    WHERE city_id IN `+set+`
		 )
		 WHERE sibling_rank <= ?
		 ORDER BY city_id ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("leading subcities: %w", err)
	}
	defer rows.Close()
	return scanSubcities(rows, perCity*len(cityIDs))
}

// CountSubcitiesByCity returns each city's true total subcity count for the
// given id set.
func (s *Store) CountSubcitiesByCity(ctx context.Context, cityIDs []int64) (map[int64]int, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	set, args, err := inList(cityIDs)
	if err != nil {
		return nil, fmt.Errorf("count subcities by city: %w", err)
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT city_id, COUNT(*) FROM subcities WHERE city_id IN `+set+` GROUP BY city_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("count subcities by city: %w", err)
	}
	defer rows.Close()
	return scanGroupedCounts(rows, "count subcities by city")
}

func scanCities(rows *sql.Rows, sizeHint int) ([]storage.City, error) {
	if sizeHint < 0 {
		sizeHint = 0
	}
	cities := make([]storage.City, 0, sizeHint)
	for rows.Next() {
		var city storage.City
		if err := rows.Scan(&city.ID, &city.Name, &city.CountryID); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan city: %w", err)
	}
	return cities, nil
}

func scanSubcities(rows *sql.Rows, sizeHint int) ([]storage.Subcity, error) {
	if sizeHint < 0 {
		sizeHint = 0
	}
	subcities := make([]storage.Subcity, 0, sizeHint)
	for rows.Next() {
		var subcity storage.Subcity
		if err := rows.Scan(&subcity.ID, &subcity.Name, &subcity.CityID); err != nil {
			return nil, fmt.Errorf("scan subcity: %w", err)
		}
		subcities = append(subcities, subcity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan subcity: %w", err)
	}
	return subcities, nil
}

func scanGroupedCounts(rows *sql.Rows, verb string) (map[int64]int, error) {
	counts := make(map[int64]int)
	for rows.Next() {
		var parentID int64
		var total int
		if err := rows.Scan(&parentID, &total); err != nil {
			return nil, fmt.Errorf("%s: %w", verb, err)
		}
		counts[parentID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", verb, err)
	}
	return counts, nil
}
