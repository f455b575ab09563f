package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fabienpiette/partfox/internal/autocomplete"
	"github.com/fabienpiette/partfox/internal/catalog"
	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/pagination"
	"github.com/fabienpiette/partfox/internal/ranking"
	"github.com/fabienpiette/partfox/internal/repositories"
)

const searchKeyPrefix = "search:results:"

// sharedFetchTimeout bounds a catalog fetch shared by concurrent callers.
// It runs detached from the first caller's context so that one client
// going away does not fail the others.
const sharedFetchTimeout = time.Minute

// detached returns a context that keeps ctx's values but not its
// cancellation, bounded by sharedFetchTimeout
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
}

// Response messages
const (
	msgResults         = "Resultados para '%s'."
	msgPlateFallback   = "Placa não encontrada. Exibindo resultados para '%s'."
	msgNoResultsTerm   = "Nenhum produto encontrado para '%s'."
	msgNoResults       = "Nenhum produto encontrado."
	msgEmptyQuery      = "Informe um termo de busca ou uma família com a montadora."
	msgUpstreamFailure = "Não foi possível consultar o catálogo no momento. Tente novamente."
)

// CatalogClient is the part of the external catalog the service consumes
type CatalogClient interface {
	QueryProducts(ctx context.Context, q models.ProductQuery) (*models.QueryResult, error)
	QuerySummary(ctx context.Context, term string, page, pageSize int) (*models.QueryResult, error)
	ListManufacturers(ctx context.Context) ([]models.Reference, error)
	ListFamilies(ctx context.Context) ([]models.Reference, error)
	ListProductGroups(ctx context.Context) ([]models.ProductGroup, error)
}

// Options tunes page sizes and caching
type Options struct {
	PageSize          int
	TermPageSize      int
	CategoryPageSize  int
	DetailPageSize    int
	LivePageSize      int
	CacheTTL          time.Duration
	ReferenceCacheTTL time.Duration
	HistoryEnabled    bool
}

// OptionsFromConfig maps the search and autocomplete config sections
func OptionsFromConfig(sc config.SearchConfig, ac config.AutocompleteConfig) Options {
	return Options{
		PageSize:          sc.PageSize,
		TermPageSize:      sc.TermPageSize,
		CategoryPageSize:  sc.CategoryPageSize,
		DetailPageSize:    sc.DetailPageSize,
		LivePageSize:      ac.LivePageSize,
		CacheTTL:          time.Duration(sc.CacheTTL) * time.Minute,
		ReferenceCacheTTL: time.Duration(sc.ReferenceCacheTTL) * time.Hour,
		HistoryEnabled:    sc.HistoryEnabled,
	}
}

func (o *Options) applyDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = pagination.DefaultPageSize
	}
	if o.TermPageSize <= 0 {
		o.TermPageSize = 500
	}
	if o.CategoryPageSize <= 0 {
		o.CategoryPageSize = 5000
	}
	if o.DetailPageSize <= 0 {
		o.DetailPageSize = 200
	}
	if o.LivePageSize <= 0 {
		o.LivePageSize = 20
	}
}

// Stats counts orchestrator outcomes since start
type Stats struct {
	Searches       int64 `json:"searches"`
	CacheHits      int64 `json:"cache_hits"`
	UpstreamErrors int64 `json:"upstream_errors"`
	EmptyQueries   int64 `json:"empty_queries"`
}

// Service orchestrates catalog searches: fetch, normalize, filter, rank and
// paginate, feeding term results to the autocomplete engine.
type Service struct {
	catalog CatalogClient
	cache   repositories.ResultCache
	history repositories.SearchHistoryRepository
	engine  *autocomplete.Engine
	opts    Options
	group   singleflight.Group
	logger  *logrus.Logger

	searches       atomic.Int64
	cacheHits      atomic.Int64
	upstreamErrors atomic.Int64
	emptyQueries   atomic.Int64
}

// NewService creates a new search service. cache and history may be nil.
func NewService(
	catalogClient CatalogClient,
	cache repositories.ResultCache,
	history repositories.SearchHistoryRepository,
	engine *autocomplete.Engine,
	opts Options,
	logger *logrus.Logger,
) *Service {
	opts.applyDefaults()
	return &Service{
		catalog: catalogClient,
		cache:   cache,
		history: history,
		engine:  engine,
		opts:    opts,
		logger:  logger,
	}
}

// Engine returns the autocomplete engine fed by the service
func (s *Service) Engine() *autocomplete.Engine {
	return s.engine
}

// Stats returns a snapshot of the outcome counters
func (s *Service) Stats() Stats {
	return Stats{
		Searches:       s.searches.Load(),
		CacheHits:      s.cacheHits.Load(),
		UpstreamErrors: s.upstreamErrors.Load(),
		EmptyQueries:   s.emptyQueries.Load(),
	}
}

// fetchResult is the cacheable outcome of the fetch and filter stages
type fetchResult struct {
	Items   []models.NormalizedItem
	Message string
	Cached  bool
}

// Search runs a product search. It never fails: upstream problems come back
// as an empty page with status upstream_error and an explanatory message.
func (s *Service) Search(ctx context.Context, request *models.SearchRequest) *models.SearchResponse {
	start := time.Now()
	req := normalizeRequest(request)

	ordering, known := ranking.ParseSort(req.SortBy, req.Order)
	if !known {
		s.logger.WithField("ordenar_por", req.SortBy).Debug("Unknown sort key, ordering by name")
	}

	response := &models.SearchResponse{
		Items:   []models.NormalizedItem{},
		Page:    req.Page,
		Brands:  []string{},
		SortBy:  string(ordering.Mode),
		Order:   ordering.Direction(),
		Status:  models.SearchStatusOK,
		Message: "",
	}

	mode := req.Mode()
	if mode == models.SearchModeNone {
		s.emptyQueries.Add(1)
		response.Status = models.SearchStatusEmptyQuery
		response.Message = msgEmptyQuery
		return response
	}
	s.searches.Add(1)

	result, err := s.fetch(ctx, req, mode)
	if err != nil {
		s.upstreamErrors.Add(1)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"mode": mode,
			"kind": models.UpstreamKind(err),
		}).Warn("Catalog search failed")

		response.Status = models.SearchStatusUpstreamError
		response.Message = msgUpstreamFailure
		response.DurationMS = int(time.Since(start).Milliseconds())
		s.recordHistory(ctx, req, mode, response)
		return response
	}

	size := s.opts.PageSize
	total := len(result.Items)
	totalPages := pagination.TotalPages(total, size)
	ranked := ranking.RankItems(result.Items, ordering, min(req.Page, totalPages)*size)
	page := pagination.Paginate(ranked, req.Page, size)

	response.Items = page.Items
	response.Total = total
	response.TotalPages = totalPages
	response.NextPage = req.Page < response.TotalPages
	response.Message = result.Message
	response.Brands = distinctBrands(result.Items)
	response.Cached = result.Cached

	if mode == models.SearchModeTerm && !result.Cached && s.engine != nil {
		s.engine.Ingest(result.Items, "")
	}

	response.DurationMS = int(time.Since(start).Milliseconds())
	s.recordHistory(ctx, req, mode, response)

	s.logger.WithFields(logrus.Fields{
		"mode":        mode,
		"total":       total,
		"page":        req.Page,
		"cached":      result.Cached,
		"duration_ms": response.DurationMS,
	}).Info("Search completed")

	return response
}

// fetch returns the normalized, filtered items of a request, from the result
// cache when possible. Concurrent identical requests share one upstream call.
func (s *Service) fetch(ctx context.Context, req models.SearchRequest, mode models.SearchMode) (*fetchResult, error) {
	key := searchKey(req, mode)

	if req.UseCache && s.cache != nil {
		var cached models.CachedSearch
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Result cache read failed")
		}
		if found {
			s.cacheHits.Add(1)
			return &fetchResult{Items: nonNil(cached.Items), Message: cached.Message, Cached: true}, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ctx, cancel := detached(ctx)
		defer cancel()

		var (
			result *fetchResult
			err    error
		)
		switch mode {
		case models.SearchModeTerm:
			result, err = s.searchTerm(ctx, req)
		default:
			result, err = s.searchCategory(ctx, req)
		}
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			entry := models.CachedSearch{Items: result.Items, Message: result.Message, StoredAt: time.Now().UTC()}
			if err := s.cache.Set(ctx, key, entry, s.opts.CacheTTL); err != nil {
				s.logger.WithError(err).Warn("Result cache write failed")
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	shared := *v.(*fetchResult)
	return &shared, nil
}

// searchTerm queries by product name, first with the plate when given and
// then without it when the plate yields nothing.
func (s *Service) searchTerm(ctx context.Context, req models.SearchRequest) (*fetchResult, error) {
	query := models.ProductQuery{
		Product:  models.ProductFilter{Name: req.Term},
		Vehicle:  models.VehicleFilter{Plate: req.Plate},
		PageSize: s.opts.TermPageSize,
	}

	result, err := s.catalog.QueryProducts(ctx, query)
	if err == nil && len(result.Records) > 0 {
		return &fetchResult{
			Items:   filterBrand(catalog.Normalize(result.Records), req.Brand),
			Message: fmt.Sprintf(msgResults, req.Term),
		}, nil
	}

	if req.Plate == "" {
		if err != nil {
			return nil, err
		}
		return &fetchResult{Items: []models.NormalizedItem{}, Message: fmt.Sprintf(msgNoResultsTerm, req.Term)}, nil
	}

	if err != nil {
		s.logger.WithError(err).WithField("plate", req.Plate).Warn("Plate search failed, retrying without plate")
	}

	query.Vehicle = models.VehicleFilter{}
	result, err = s.catalog.QueryProducts(ctx, query)
	if err != nil {
		return nil, err
	}

	items := filterBrand(catalog.Normalize(result.Records), req.Brand)
	return &fetchResult{Items: items, Message: fmt.Sprintf(msgPlateFallback, req.Term)}, nil
}

// searchCategory queries a family (or subfamily) broadly and keeps records
// with a fitment entry of the requested manufacturer.
func (s *Service) searchCategory(ctx context.Context, req models.SearchRequest) (*fetchResult, error) {
	filter := models.ProductFilter{FamilyID: req.FamilyID, Name: req.FamilyName}
	if req.SubfamilyID != nil {
		filter.Name = req.SubfamilyName
		filter.LastLevelID = req.SubfamilyID
	}

	result, err := s.catalog.QueryProducts(ctx, models.ProductQuery{Product: filter, PageSize: s.opts.CategoryPageSize})
	if err != nil {
		return nil, err
	}

	matched := make([]models.RawRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		if catalog.MatchesManufacturer(rec.Data, req.Brand) {
			matched = append(matched, rec)
		}
	}

	message := ""
	if len(matched) == 0 {
		message = msgNoResults
	}
	return &fetchResult{Items: catalog.Normalize(matched), Message: message}, nil
}

// Suggest returns autocomplete suggestions for prefix, refreshed from the
// catalog summary search
func (s *Service) Suggest(ctx context.Context, prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}
	}
	return s.engine.SearchLive(ctx, prefix, s.fetchSuggestions)
}

func (s *Service) fetchSuggestions(ctx context.Context, prefix string) ([]models.RawRecord, error) {
	result, err := s.catalog.QuerySummary(ctx, prefix, 0, s.opts.LivePageSize)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

func (s *Service) recordHistory(ctx context.Context, req models.SearchRequest, mode models.SearchMode, response *models.SearchResponse) {
	if !s.opts.HistoryEnabled || s.history == nil {
		return
	}

	query := req.Term
	if mode == models.SearchModeCategory {
		query = req.FamilyName
		if req.SubfamilyID != nil {
			query = req.SubfamilyName
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	entry := &models.SearchHistoryEntry{
		Query:        query,
		Plate:        req.Plate,
		Mode:         mode,
		ResultsCount: response.Total,
		Status:       response.Status,
		DurationMS:   response.DurationMS,
		SearchedAt:   time.Now().UTC(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("Failed to record search history")
	}
}

// normalizeRequest trims the request the way the catalog expects it: term in
// lowercase, plate and manufacturer in uppercase, page at least 1
func normalizeRequest(request *models.SearchRequest) models.SearchRequest {
	req := models.SearchRequest{}
	if request != nil {
		req = *request
	}
	req.Term = strings.ToLower(strings.TrimSpace(req.Term))
	req.Plate = strings.ToUpper(strings.TrimSpace(req.Plate))
	req.Brand = strings.ToUpper(strings.TrimSpace(req.Brand))
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	req.SubfamilyName = strings.TrimSpace(req.SubfamilyName)
	if req.Page < 1 {
		req.Page = 1
	}
	return req
}

// searchKey hashes the parameters that shape the fetched item set. Sorting
// and paging happen after the cache and are not part of the key.
func searchKey(req models.SearchRequest, mode models.SearchMode) string {
	parts := []string{string(mode), req.Term, req.Plate, req.Brand, optionalInt(req.FamilyID), req.FamilyName, optionalInt(req.SubfamilyID), req.SubfamilyName}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return searchKeyPrefix + hex.EncodeToString(sum[:])
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func filterBrand(items []models.NormalizedItem, brand string) []models.NormalizedItem {
	if brand == "" {
		return items
	}
	filtered := make([]models.NormalizedItem, 0, len(items))
	for _, item := range items {
		if strings.EqualFold(item.Brand, brand) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func distinctBrands(items []models.NormalizedItem) []string {
	seen := make(map[string]struct{})
	brands := make([]string, 0)
	for _, item := range items {
		if item.Brand == "" {
			continue
		}
		if _, ok := seen[item.Brand]; ok {
			continue
		}
		seen[item.Brand] = struct{}{}
		brands = append(brands, item.Brand)
	}
	sort.Strings(brands)
	return brands
}

func nonNil(items []models.NormalizedItem) []models.NormalizedItem {
	if items == nil {
		return []models.NormalizedItem{}
	}
	return items
}
