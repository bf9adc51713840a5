package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/dawitj/gebeya/internal/errors"
	"github.com/dawitj/gebeya/internal/services/catalog/compose"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

// Pagination describes the post-only page metadata of a composed catalog
// page. Ad insertions never change these numbers.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	PerPageLimit int `json:"perPageLimit"`
	TotalRecords int `json:"totalRecords"`
}

// CatalogPage is one composed listing page.
type CatalogPage struct {
	Items      []compose.Item `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// CatalogRequest selects one composed listing page.
type CatalogRequest struct {
	// LocationID is the subcity leaf; CategoryID the subcategory leaf.
	LocationID int64
	CategoryID int64
	Page       int
	Keyword    string
	AdKind     storage.AdKind
}

type catalogCondition struct {
	LocationID int64
	CategoryID int64
	Page       int
	Keyword    string
	AdKind     string
}

const displayDateFormat = "Jan 2, 2006"

// GetCatalogPage returns one page of posts merged with pinned and
// periodic ads. Featured posts sort first; pagination counts posts only.
func (s *Service) GetCatalogPage(ctx context.Context, req CatalogRequest) (CatalogPage, error) {
	if req.LocationID <= 0 {
		return CatalogPage{}, apperrors.E(apperrors.KindInvalidInput, "location leaf id is required")
	}
	if req.CategoryID <= 0 {
		return CatalogPage{}, apperrors.E(apperrors.KindInvalidInput, "category leaf id is required")
	}
	if req.Page <= 0 {
		return CatalogPage{}, apperrors.E(apperrors.KindInvalidInput, "page must be positive")
	}
	if !req.AdKind.Valid() {
		return CatalogPage{}, apperrors.E(apperrors.KindInvalidInput, "unknown ad kind")
	}

	condition := catalogCondition{
		LocationID: req.LocationID,
		CategoryID: req.CategoryID,
		Page:       req.Page,
		Keyword:    req.Keyword,
		AdKind:     string(req.AdKind),
	}
	return cachedFetch(ctx, s, "catalog_page", condition, s.cfg.CatalogTTL, func(ctx context.Context) (CatalogPage, error) {
		return s.composePage(ctx, req)
	})
}

func (s *Service) composePage(ctx context.Context, req CatalogRequest) (CatalogPage, error) {
	// Leaf resolution fails distinctly from fetch errors so callers can
	// render "no such location/category" versus "try again".
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.store.GetSubcity(gctx, req.LocationID); err != nil {
			return mapStoreErr(err, "location")
		}
		return nil
	})
	g.Go(func() error {
		if _, err := s.store.GetSubcategory(gctx, req.CategoryID); err != nil {
			return mapStoreErr(err, "category")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return CatalogPage{}, err
	}

	limit := s.cfg.PerPage
	offset := (req.Page - 1) * limit
	query := storage.PostQuery{
		SubcityID:     req.LocationID,
		SubcategoryID: req.CategoryID,
		Keyword:       req.Keyword,
		Limit:         limit,
		Offset:        offset,
		Now:           s.clock(),
	}

	// The three streams share one (limit, offset) window so ads rotate
	// per page rather than globally. All fetches succeed or the page
	// fails; there is no degraded composition.
	var (
		posts    []storage.Post
		total    int
		pinned   []storage.PinnedAd
		periodic []storage.PeriodicAd
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.store.ListPosts(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountPosts(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		pinned, err = s.store.ListPinnedAds(gctx, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		periodic, err = s.store.ListPeriodicAds(gctx, req.AdKind, limit, offset)
		return err
	})
	if err := g.Wait(); err != nil {
		return CatalogPage{}, mapStoreErr(err, "catalog page")
	}

	cards, err := s.decoratePosts(ctx, posts)
	if err != nil {
		return CatalogPage{}, err
	}

	return CatalogPage{
		Items: compose.Merge(compose.Posts(cards), pinned, periodic),
		Pagination: Pagination{
			CurrentPage:  req.Page,
			TotalPages:   totalPages(total, limit),
			PerPageLimit: limit,
			TotalRecords: total,
		},
	}, nil
}

// decoratePosts resolves each post's thumbnail and display date. A
// missing image file is not an error; the placeholder stands in.
func (s *Service) decoratePosts(ctx context.Context, posts []storage.Post) ([]compose.PostCard, error) {
	groupIDs := make([]int64, 0, len(posts))
	for _, post := range posts {
		if post.ImageGroupID > 0 {
			groupIDs = append(groupIDs, post.ImageGroupID)
		}
	}
	images, err := s.store.FirstImagesByGroup(ctx, groupIDs)
	if err != nil {
		return nil, mapStoreErr(err, "post images")
	}

	cards := make([]compose.PostCard, 0, len(posts))
	for _, post := range posts {
		thumbnail := s.cfg.PlaceholderImage
		if filename, ok := images[post.ImageGroupID]; ok && s.images.Exists(filename) {
			thumbnail = filename
		}
		cards = append(cards, compose.PostCard{
			Post:        post,
			Featured:    post.Featured,
			DisplayDate: post.CreatedAt.Format(displayDateFormat),
			Thumbnail:   thumbnail,
		})
	}
	return cards, nil
}

func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
