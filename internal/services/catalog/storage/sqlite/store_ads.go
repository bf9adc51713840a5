package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// GetSubcategory returns one subcategory by id.
func (s *Store) GetSubcategory(ctx context.Context, id int64) (storage.Subcategory, error) {
	if err := s.ready(); err != nil {
		return storage.Subcategory{}, err
	}
	var subcategory storage.Subcategory
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, category_id FROM subcategories WHERE id = ?`,
		id,
	).Scan(&subcategory.ID, &subcategory.Name, &subcategory.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Subcategory{}, storage.ErrNotFound
		}
		return storage.Subcategory{}, fmt.Errorf("get subcategory: %w", err)
	}
	return subcategory, nil
}

// ListPinnedAds returns one id-ordered window of pinned ads. Fetch order
// is the order the composer consumes them in.
func (s *Store) ListPinnedAds(ctx context.Context, limit, offset int) ([]storage.PinnedAd, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := checkWindow(limit, offset); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, position, content FROM pinned_ads ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list pinned ads: %w", err)
	}
	defer rows.Close()

	ads := make([]storage.PinnedAd, 0, limit)
	for rows.Next() {
		var ad storage.PinnedAd
		if err := rows.Scan(&ad.ID, &ad.Position, &ad.Content); err != nil {
			return nil, fmt.Errorf("list pinned ads: %w", err)
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pinned ads: %w", err)
	}
	return ads, nil
}

// ListPeriodicAds returns one id-ordered window of rotating ads for the
// active kind.
func (s *Store) ListPeriodicAds(ctx context.Context, kind storage.AdKind, limit, offset int) ([]storage.PeriodicAd, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown ad kind %q", kind)
	}
	if err := checkWindow(limit, offset); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, kind, content FROM periodic_ads WHERE kind = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		string(kind),
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list periodic ads: %w", err)
	}
	defer rows.Close()

	ads := make([]storage.PeriodicAd, 0, limit)
	for rows.Next() {
		var ad storage.PeriodicAd
		var adKind string
		if err := rows.Scan(&ad.ID, &adKind, &ad.Content); err != nil {
			return nil, fmt.Errorf("list periodic ads: %w", err)
		}
		ad.Kind = storage.AdKind(adKind)
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list periodic ads: %w", err)
	}
	return ads, nil
}
