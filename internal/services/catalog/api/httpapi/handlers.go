// Package httpapi exposes the catalog operations as a JSON API.
package httpapi

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dawitj/gebeya/internal/services/catalog/hierarchy"
	"github.com/dawitj/gebeya/internal/services/catalog/service"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
)

const tracerName = "github.com/dawitj/gebeya/internal/services/catalog/api/httpapi"

// CatalogService is the operation surface the handlers depend on.
type CatalogService interface {
	GetHierarchyWindow(ctx context.Context, req service.HierarchyRequest) (hierarchy.Window, error)
	LoadMoreCountries(ctx context.Context, page, limit int) (hierarchy.CountryList, error)
	LoadMoreCities(ctx context.Context, countryID int64, page, cityLimit, subcityLimit int, callerIP string) (hierarchy.CityList, error)
	LoadMoreSubcities(ctx context.Context, cityID int64, page, limit int, callerIP string) (hierarchy.SubcityList, error)
	GetCatalogPage(ctx context.Context, req service.CatalogRequest) (service.CatalogPage, error)
	CountVisitors(ctx context.Context, day string) (int, error)
}

type handlers struct {
	service CatalogService
	// activeAdKind is the site-wide rotating-ad setting.
	activeAdKind storage.AdKind
	tracer       trace.Tracer
}

// New builds the catalog route mux.
func New(svc CatalogService, activeAdKind storage.AdKind) http.Handler {
	h := handlers{
		service:      svc,
		activeAdKind: activeAdKind,
		tracer:       otel.Tracer(tracerName),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /v1/hierarchy", h.handleHierarchy)
	mux.HandleFunc(http.MethodGet+" /v1/countries", h.handleCountries)
	mux.HandleFunc(http.MethodGet+" /v1/countries/{id}/cities", h.handleCities)
	mux.HandleFunc(http.MethodGet+" /v1/cities/{id}/subcities", h.handleSubcities)
	mux.HandleFunc(http.MethodGet+" /v1/catalog", h.handleCatalog)
	mux.HandleFunc(http.MethodGet+" /v1/stats/visitors", h.handleVisitorCount)
	return withRequestID(mux)
}

func (h handlers) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.GetHierarchyWindow")
	defer span.End()

	req := service.HierarchyRequest{CallerIP: clientIP(r)}
	var err error
	if req.CountryPage, err = queryInt(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CountryLimit, err = queryInt(r, "country_limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CityLimit, err = queryInt(r, "city_limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SubcityLimit, err = queryInt(r, "subcity_limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int("catalog.country_page", req.CountryPage))

	window, err := h.service.GetHierarchyWindow(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (h handlers) handleCountries(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.LoadMoreCountries")
	defer span.End()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.service.LoadMoreCountries(ctx, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h handlers) handleCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.LoadMoreCities")
	defer span.End()

	countryID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cityLimit, err := queryInt(r, "city_limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	subcityLimit, err := queryInt(r, "subcity_limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("catalog.country_id", countryID))

	list, err := h.service.LoadMoreCities(ctx, countryID, page, cityLimit, subcityLimit, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h handlers) handleSubcities(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.LoadMoreSubcities")
	defer span.End()

	cityID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int64("catalog.city_id", cityID))

	list, err := h.service.LoadMoreSubcities(ctx, cityID, page, limit, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h handlers) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.GetCatalogPage")
	defer span.End()

	req := service.CatalogRequest{
		Keyword: r.URL.Query().Get("q"),
		AdKind:  h.activeAdKind,
	}
	var err error
	if req.LocationID, err = queryID(r, "location"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CategoryID, err = queryID(r, "category"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Page, err = queryInt(r, "page", 1); err != nil {
		writeError(w, r, err)
		return
	}
	span.SetAttributes(
		attribute.Int64("catalog.location_id", req.LocationID),
		attribute.Int64("catalog.category_id", req.CategoryID),
	)

	page, err := h.service.GetCatalogPage(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h handlers) handleVisitorCount(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "catalog.CountVisitors")
	defer span.End()

	day := r.URL.Query().Get("day")
	total, err := h.service.CountVisitors(ctx, day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"visitors": total})
}
