package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RecordVisit upserts one (ip, day) visit row. Repeat visits on the same
// day are deduplicated; concurrent same-key writes may race, which is
// acceptable for a best-effort counter.
func (s *Store) RecordVisit(ctx context.Context, ip, day string) error {
	if err := s.ready(); err != nil {
		return err
	}
	ip = strings.TrimSpace(ip)
	day = strings.TrimSpace(day)
	if ip == "" {
		return fmt.Errorf("visitor ip is required")
	}
	if day == "" {
		return fmt.Errorf("visit day is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO site_visits (ip, day, visited_at) VALUES (?, ?, ?)
		 ON CONFLICT (ip, day) DO NOTHING`,
		ip,
		day,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// CountVisits returns the distinct visitor count recorded for a day.
func (s *Store) CountVisits(ctx context.Context, day string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var total int
	if err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM site_visits WHERE day = ?`,
		day,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return total, nil
}
