// Package seed populates the local development database with demo
// classifieds data: a small location tree, categories, posts, and ads.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/dawitj/gebeya/internal/platform/storage/sqlitemigrate"
	"github.com/dawitj/gebeya/internal/services/catalog/storage/sqlite/migrations"
)

// Config holds seeding configuration.
type Config struct {
	// DBPath is the catalog SQLite database file.
	DBPath string
	// Verbose enables per-row logging.
	Verbose bool
	// Now anchors generated timestamps. Zero means time.Now.
	Now time.Time
}

// DefaultConfig returns the default seeding configuration.
func DefaultConfig() Config {
	return Config{
		DBPath: filepath.Join("data", "catalog.db"),
	}
}

// Run opens the catalog database, applies migrations, and inserts the
// demo fixtures. Existing rows with the same ids are left untouched.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := filepath.Clean(cfg.DBPath) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	defer db.Close()

	if err := sqlitemigrate.ApplyMigrations(db, migrations.FS, ""); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	exec := func(query string, args ...any) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
		if cfg.Verbose && n > 0 {
			log.Printf("seed: %s %v", firstWords(query, 4), args)
		}
		return nil
	}

	if err := seedLocations(exec); err != nil {
		return fmt.Errorf("seed locations: %w", err)
	}
	if err := seedCategories(exec); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if err := seedPosts(exec, now); err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	if err := seedAds(exec); err != nil {
		return fmt.Errorf("seed ads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	log.Printf("seeded %d rows into %s", inserted, cfg.DBPath)
	return nil
}

type execFunc func(query string, args ...any) error

func seedLocations(exec execFunc) error {
	countries := []struct {
		id   int64
		name string
	}{
		{1, "Ethiopia"},
		{2, "Kenya"},
		{3, "Djibouti"},
	}
	for _, c := range countries {
		if err := exec(`INSERT OR IGNORE INTO countries (id, name) VALUES (?, ?)`, c.id, c.name); err != nil {
			return err
		}
	}

	cities := []struct {
		id        int64
		name      string
		countryID int64
	}{
		{1, "Addis Ababa", 1},
		{2, "Adama", 1},
		{3, "Bahir Dar", 1},
		{4, "Hawassa", 1},
		{5, "Dire Dawa", 1},
		{6, "Mekelle", 1},
		{7, "Nairobi", 2},
		{8, "Mombasa", 2},
		{9, "Djibouti City", 3},
	}
	for _, c := range cities {
		if err := exec(`INSERT OR IGNORE INTO cities (id, name, country_id) VALUES (?, ?, ?)`, c.id, c.name, c.countryID); err != nil {
			return err
		}
	}

	subcities := []struct {
		id     int64
		name   string
		cityID int64
	}{
		{1, "Bole", 1},
		{2, "Kirkos", 1},
		{3, "Yeka", 1},
		{4, "Arada", 1},
		{5, "Lideta", 1},
		{6, "Gulele", 1},
		{7, "Dembela", 2},
		{8, "Boku", 2},
		{9, "Tana", 3},
		{10, "Gish Abay", 3},
		{11, "Tabor", 4},
		{12, "Kebele 01", 5},
		{13, "Ayder", 6},
		{14, "Westlands", 7},
		{15, "Kilimani", 7},
		{16, "Nyali", 8},
		{17, "Balbala", 9},
	}
	for _, s := range subcities {
		if err := exec(`INSERT OR IGNORE INTO subcities (id, name, city_id) VALUES (?, ?, ?)`, s.id, s.name, s.cityID); err != nil {
			return err
		}
	}
	return nil
}

func seedCategories(exec execFunc) error {
	categories := []struct {
		id   int64
		name string
	}{
		{1, "Electronics"},
		{2, "Vehicles"},
		{3, "Real Estate"},
		{4, "Jobs"},
	}
	for _, c := range categories {
		if err := exec(`INSERT OR IGNORE INTO categories (id, name) VALUES (?, ?)`, c.id, c.name); err != nil {
			return err
		}
	}

	subcategories := []struct {
		id         int64
		name       string
		categoryID int64
	}{
		{1, "Mobile Phones", 1},
		{2, "Laptops", 1},
		{3, "TVs", 1},
		{4, "Cars", 2},
		{5, "Motorcycles", 2},
		{6, "Apartments for Rent", 3},
		{7, "Houses for Sale", 3},
		{8, "Accounting", 4},
		{9, "Engineering", 4},
	}
	for _, s := range subcategories {
		if err := exec(`INSERT OR IGNORE INTO subcategories (id, name, category_id) VALUES (?, ?, ?)`, s.id, s.name, s.categoryID); err != nil {
			return err
		}
	}
	return nil
}

func seedPosts(exec execFunc, now time.Time) error {
	titles := []string{
		"Slightly used iPhone 13, excellent condition",
		"Samsung Galaxy S22 with original charger",
		"Tecno Spark, brand new in box",
		"Infinix Hot 30, warranty remaining",
		"Google Pixel 7, imported",
		"Redmi Note 12, dual sim",
		"iPhone 11, battery replaced",
		"Nokia G21, barely used",
		"Huawei P40 Lite with case",
		"OnePlus Nord, clean device",
		"Oppo Reno 8, gold color",
		"Samsung A54, receipt available",
	}
	for i, title := range titles {
		id := int64(i + 1)
		createdAt := now.Add(-time.Duration(i) * 24 * time.Hour).UTC().UnixMilli()
		var featuredUntil any
		if i < 2 {
			featuredUntil = now.Add(7 * 24 * time.Hour).UTC().UnixMilli()
		}
		err := exec(
			`INSERT OR IGNORE INTO posts (id, title, description, subcity_id, subcategory_id, created_at, active, featured_until, image_group_id)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, title, "Contact seller for details. Price negotiable.", int64(1), int64(1), createdAt, featuredUntil, id,
		)
		if err != nil {
			return err
		}
		err = exec(
			`INSERT OR IGNORE INTO post_images (id, image_group_id, filename) VALUES (?, ?, ?)`,
			id, id, fmt.Sprintf("posts/%d/photo-1.jpg", id),
		)
		if err != nil {
			return err
		}
	}

	// A couple of posts outside the default leaf pair, for browsing other
	// subcities and subcategories.
	extras := []struct {
		id            int64
		title         string
		subcityID     int64
		subcategoryID int64
	}{
		{100, "Toyota Corolla 2014, low mileage", 2, 4},
		{101, "Two bedroom apartment near Edna Mall", 1, 6},
		{102, "Bajaj Boxer, good for delivery work", 7, 5},
	}
	for i, p := range extras {
		createdAt := now.Add(-time.Duration(i+1) * 12 * time.Hour).UTC().UnixMilli()
		err := exec(
			`INSERT OR IGNORE INTO posts (id, title, description, subcity_id, subcategory_id, created_at, active, featured_until, image_group_id)
			 VALUES (?, ?, ?, ?, ?, ?, 1, NULL, 0)`,
			p.id, p.title, "Serious buyers only.", p.subcityID, p.subcategoryID, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedAds(exec execFunc) error {
	pinned := []struct {
		id       int64
		position int
		content  string
	}{
		{1, 1, "Ride with Feres: download the app today"},
		{2, 4, "Gebeya Premium: feature your listing"},
		{3, 8, "Awash Bank: open an account in minutes"},
	}
	for _, a := range pinned {
		if err := exec(`INSERT OR IGNORE INTO pinned_ads (id, position, content) VALUES (?, ?, ?)`, a.id, a.position, a.content); err != nil {
			return err
		}
	}

	periodic := []struct {
		id      int64
		kind    string
		content string
	}{
		{1, "post_ads", "Sell faster: promote your post"},
		{2, "post_ads", "Verified sellers get more views"},
		{3, "google_ads", "adsense:slot-1"},
		{4, "google_ads", "adsense:slot-2"},
	}
	for _, a := range periodic {
		if err := exec(`INSERT OR IGNORE INTO periodic_ads (id, kind, content) VALUES (?, ?, ?)`, a.id, a.kind, a.content); err != nil {
			return err
		}
	}
	return nil
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
