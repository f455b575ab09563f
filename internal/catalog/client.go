package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fabienpiette/partfox/internal/auth"
	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/models"
)

// Catalog API paths, relative to the configured base URL
const (
	PathProductQuery  = "/catalogo/produtos/query"
	PathSummaryQuery  = "/catalogo/v2/produtos/query/sumario"
	PathManufacturers = "/veiculo/montadoras/query"
	PathFamilies      = "/produto/familias/query"
	PathProductGroups = "/produto/ultimos-niveis/query"
)

const (
	manufacturersPageSize = 500
	familiesPageSize      = 1000
	groupsPageSize        = 1000
	defaultBackoff        = 600 * time.Millisecond
)

// Client handles communication with the external parts catalog API
type Client struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCount int
	backoff    time.Duration
	logger     *logrus.Logger
}

// NewClient creates a new catalog API client
func NewClient(cfg config.CatalogConfig, tokens auth.TokenSource, logger *logrus.Logger) *Client {
	requests := cfg.RateLimitRequests
	if requests <= 0 {
		requests = 60
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = 60
	}

	// Create rate limiter based on configuration
	limiter := rate.NewLimiter(
		rate.Every(time.Duration(window)*time.Second/time.Duration(requests)),
		requests,
	)

	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		limiter:    limiter,
		retryCount: cfg.RetryCount,
		backoff:    defaultBackoff,
		logger:     logger,
	}
}

type pageEnvelope struct {
	PageResult struct {
		Data       []models.RawRecord `json:"data"`
		TotalCount *int               `json:"totalCount"`
	} `json:"pageResult"`
}

func (e *pageEnvelope) result() *models.QueryResult {
	records := e.PageResult.Data
	if records == nil {
		records = []models.RawRecord{}
	}
	total := len(records)
	if e.PageResult.TotalCount != nil {
		total = *e.PageResult.TotalCount
	}
	return &models.QueryResult{Records: records, TotalCount: total}
}

// QueryProducts runs a filtered product query
func (c *Client) QueryProducts(ctx context.Context, q models.ProductQuery) (*models.QueryResult, error) {
	payload := map[string]interface{}{
		"produtoFiltro":  q.Product,
		"veiculoFiltro":  q.Vehicle,
		"pagina":         q.Page,
		"itensPorPagina": q.PageSize,
	}

	var envelope pageEnvelope
	if err := c.post(ctx, PathProductQuery, payload, &envelope); err != nil {
		return nil, err
	}

	result := envelope.result()
	c.logger.WithFields(logrus.Fields{
		"name":    q.Product.Name,
		"plate":   q.Vehicle.Plate,
		"records": len(result.Records),
	}).Debug("Catalog product query completed")
	return result, nil
}

// QuerySummary runs a free-text "superbusca" summary query. Records of this
// endpoint usually carry a relevance score.
func (c *Client) QuerySummary(ctx context.Context, term string, page, pageSize int) (*models.QueryResult, error) {
	payload := map[string]interface{}{
		"superbusca":     term,
		"pagina":         page,
		"itensPorPagina": pageSize,
	}

	var envelope pageEnvelope
	if err := c.post(ctx, PathSummaryQuery, payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.result(), nil
}

type referenceEnvelope struct {
	Data []struct {
		ID          interface{}            `json:"id"`
		Description string                 `json:"descricao"`
		Family      map[string]interface{} `json:"familia"`
	} `json:"data"`
}

// ListManufacturers returns the vehicle manufacturers known to the catalog
func (c *Client) ListManufacturers(ctx context.Context) ([]models.Reference, error) {
	return c.listReferences(ctx, PathManufacturers, manufacturersPageSize)
}

// ListFamilies returns the product families known to the catalog
func (c *Client) ListFamilies(ctx context.Context) ([]models.Reference, error) {
	return c.listReferences(ctx, PathFamilies, familiesPageSize)
}

// ListProductGroups returns the last-level product groups with their family
func (c *Client) ListProductGroups(ctx context.Context) ([]models.ProductGroup, error) {
	var envelope referenceEnvelope
	if err := c.post(ctx, PathProductGroups, pagePayload(groupsPageSize), &envelope); err != nil {
		return nil, err
	}

	groups := make([]models.ProductGroup, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		group := models.ProductGroup{ID: entry.ID, Description: entry.Description}
		if id := models.ToFloatPtr(entry.Family["id"]); id != nil {
			familyID := int(*id)
			group.FamilyID = &familyID
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (c *Client) listReferences(ctx context.Context, path string, pageSize int) ([]models.Reference, error) {
	var envelope referenceEnvelope
	if err := c.post(ctx, path, pagePayload(pageSize), &envelope); err != nil {
		return nil, err
	}

	refs := make([]models.Reference, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		refs = append(refs, models.Reference{ID: entry.ID, Name: entry.Description})
	}
	return refs, nil
}

func pagePayload(pageSize int) map[string]interface{} {
	return map[string]interface{}{"pagina": 0, "itensPorPagina": pageSize}
}

// post sends a JSON POST to the catalog and decodes the response into dest.
// An empty body leaves dest untouched. Failures are returned as
// *models.UpstreamError.
func (c *Client) post(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	reauthenticated := false
	retries := 0
	for {
		// Every attempt, renewals and retries included, draws from the limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return models.NewUpstreamError(models.UpstreamTransport, 0, path, fmt.Errorf("rate limit error: %w", err))
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return models.NewUpstreamError(models.UpstreamUnauthorized, 0, path, err)
		}

		req, err := c.createRequest(ctx, http.MethodPost, path, token, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			kind := transportKind(err)
			if ctx.Err() == nil && retries < c.retryCount {
				retries++
				c.logger.WithError(err).WithField("path", path).Warn("Catalog request failed, retrying")
				if waitErr := c.wait(ctx, retries); waitErr != nil {
					return models.NewUpstreamError(kind, 0, path, err)
				}
				continue
			}
			c.logger.WithError(err).WithFields(logrus.Fields{"path": path, "kind": kind}).Error("Catalog request failed")
			return models.NewUpstreamError(kind, 0, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if !reauthenticated {
				reauthenticated = true
				c.logger.WithField("path", path).Warn("Catalog returned 401, renewing token")
				c.tokens.Invalidate()
				continue
			}
			c.logger.WithField("path", path).Error("Catalog returned 401 after token renewal")
			return models.NewUpstreamError(models.UpstreamUnauthorized, resp.StatusCode, path, nil)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if retries < c.retryCount {
				retries++
				c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode, "attempt": retries}).Warn("Catalog transient error, retrying")
				if err := c.wait(ctx, retries); err != nil {
					return models.NewUpstreamError(models.UpstreamHTTPError, resp.StatusCode, path, err)
				}
				continue
			}
			return models.NewUpstreamError(models.UpstreamHTTPError, resp.StatusCode, path, nil)

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Error("Catalog returned an error status")
			return models.NewUpstreamError(models.UpstreamHTTPError, resp.StatusCode, path, nil)
		}

		if readErr != nil {
			return models.NewUpstreamError(models.UpstreamTransport, resp.StatusCode, path, fmt.Errorf("failed to read response body: %w", readErr))
		}
		if len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}

		dec := json.NewDecoder(bytes.NewReader(respBody))
		dec.UseNumber()
		if err := dec.Decode(dest); err != nil {
			c.logger.WithError(err).WithField("path", path).Error("Catalog returned invalid JSON")
			return models.NewUpstreamError(models.UpstreamMalformed, resp.StatusCode, path, err)
		}
		return nil
	}
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<uint(attempt-1))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) createRequest(ctx context.Context, method, path, token string, body []byte) (*http.Request, error) {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "PartFox/1.0")

	return req, nil
}

func transportKind(err error) models.UpstreamErrorKind {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.UpstreamTimeout
	}
	return models.UpstreamTransport
}
