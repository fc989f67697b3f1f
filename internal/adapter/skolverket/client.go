// Package skolverket is the sole point of contact with the Skolverket
// Planned Educations API: a retrying HTTP client plus the catalog, detail,
// and statistics endpoints built on it.
package skolverket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skolkartan/school-data-etl/internal/config"
	"github.com/skolkartan/school-data-etl/internal/domain"
	"github.com/skolkartan/school-data-etl/internal/observability"
)

// acceptHeader is the content-negotiation header the API requires on every
// request.
const acceptHeader = "application/vnd.skolverket.plannededucations.api.v3.hal+json"

// Client talks to the Skolverket API with bounded retry and backoff.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	maxAttempts    int
	retryDelay     time.Duration // scaled by attempt number on transient failures
	rateLimitDelay time.Duration // scaled by attempt number on 429
	pageSize       int
	pageDelay      time.Duration
}

// NewClient creates a Skolverket API client from config.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:        cfg.APIBaseURL,
		logger:         logger,
		metrics:        metrics,
		clock:          clockwork.NewRealClock(),
		maxAttempts:    cfg.MaxAttempts,
		retryDelay:     cfg.RetryDelay,
		rateLimitDelay: cfg.RateLimitDelay,
		pageSize:       cfg.PageSize,
		pageDelay:      cfg.PageDelay,
	}
}

// listResponse is the HAL envelope of the listing endpoint. Both nesting
// levels are optional pointers: a response without them decodes to an empty
// page instead of failing.
type listResponse struct {
	Embedded *struct {
		ListedSchoolUnits []domain.SchoolUnitRef `json:"listedSchoolUnits"`
	} `json:"_embedded"`
	Page *struct {
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

// detailResponse wraps the per-unit detail record.
type detailResponse struct {
	SchoolUnit domain.SchoolUnitDetails `json:"schoolUnit"`
}

// FetchSchoolUnits walks every page of the school-unit listing, starting at
// page 0 and stopping at the total-pages count reported by the first page
// that carries one. Any page failure that survives the retry policy aborts
// the whole catalog fetch: downstream classification assumes a complete
// unit universe, so there is no partial-catalog mode.
func (c *Client) FetchSchoolUnits(ctx context.Context) ([]domain.SchoolUnitRef, error) {
	var units []domain.SchoolUnitRef

	totalPages := -1
	for page := 0; totalPages < 0 || page < totalPages; page++ {
		pageUnits, reported, err := c.fetchCatalogPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog page %d: %w", page, err)
		}
		units = append(units, pageUnits...)
		c.metrics.CatalogPages.Inc()

		if totalPages < 0 {
			if reported > 0 {
				totalPages = reported
			} else {
				// No page block on the first page; treat the response as the
				// entire catalog.
				break
			}
		}

		if page+1 < totalPages {
			c.clock.Sleep(c.pageDelay)
		}
	}

	c.logger.Info("catalog fetched", "units", len(units))
	return units, nil
}

func (c *Client) fetchCatalogPage(ctx context.Context, page int) ([]domain.SchoolUnitRef, int, error) {
	params := url.Values{
		"coordinateSystem": {"WGS84"},
		"page":             {fmt.Sprint(page)},
		"size":             {fmt.Sprint(c.pageSize)},
	}
	body, err := c.get(ctx, c.baseURL+"/school-units?"+params.Encode(), "catalog")
	if err != nil {
		return nil, 0, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode listing page: %w", err)
	}

	var pageUnits []domain.SchoolUnitRef
	if resp.Embedded != nil {
		pageUnits = resp.Embedded.ListedSchoolUnits
	}
	totalPages := 0
	if resp.Page != nil {
		totalPages = resp.Page.TotalPages
	}
	return pageUnits, totalPages, nil
}

// FetchSchoolDetails fetches the detail record for one unit code. A unit
// without a detail record yields domain.ErrNotFound.
func (c *Client) FetchSchoolDetails(ctx context.Context, code string) (*domain.SchoolUnitDetails, error) {
	body, err := c.get(ctx, c.baseURL+"/school-units/"+url.PathEscape(code), "details")
	if err != nil {
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode details for %s: %w", code, err)
	}
	return &resp.SchoolUnit, nil
}

// FetchGrStatistics fetches the grades 1-9 statistics block for one unit.
func (c *Client) FetchGrStatistics(ctx context.Context, code string) (*domain.GrStatistics, error) {
	body, err := c.get(ctx, c.statisticsURL(code, "gr"), "statistics_gr")
	if err != nil {
		return nil, err
	}

	var stats domain.GrStatistics
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("decode gr statistics for %s: %w", code, err)
	}
	return &stats, nil
}

// FetchGyStatistics fetches the upper-secondary statistics block for one unit.
func (c *Client) FetchGyStatistics(ctx context.Context, code string) (*domain.GyStatistics, error) {
	body, err := c.get(ctx, c.statisticsURL(code, "gy"), "statistics_gy")
	if err != nil {
		return nil, err
	}

	var stats domain.GyStatistics
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("decode gy statistics for %s: %w", code, err)
	}
	return &stats, nil
}

func (c *Client) statisticsURL(code, stage string) string {
	return c.baseURL + "/school-units/" + url.PathEscape(code) + "/statistics/" + stage
}

// get performs one request with the retry policy: up to maxAttempts tries;
// 429 waits rateLimitDelay x attempt, other failures wait retryDelay x
// attempt, and 404 fails immediately with domain.ErrNotFound so callers can
// tell legitimate absence from a transient error.
func (c *Client) get(ctx context.Context, fullURL, resource string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.doOnce(ctx, fullURL, resource)
		if err == nil {
			c.metrics.APIRequests.WithLabelValues(resource, "success").Inc()
			return body, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			c.metrics.APIRequests.WithLabelValues(resource, "not_found").Inc()
			return nil, err
		}

		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		delay := c.retryDelay * time.Duration(attempt)
		if isRateLimited(err) {
			delay = c.rateLimitDelay * time.Duration(attempt)
		}
		c.logger.Warn("request failed, retrying",
			"resource", resource,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		c.metrics.APIRetries.Inc()
		c.clock.Sleep(delay)
	}

	c.metrics.APIRequests.WithLabelValues(resource, "error").Inc()
	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, fullURL, resource string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.APIRequestDuration.WithLabelValues(resource).Observe(c.clock.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", fullURL, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// errRateLimited marks a 429 so the retry loop applies the longer backoff.
var errRateLimited = errors.New("rate limited by source API")

func isRateLimited(err error) bool {
	return errors.Is(err, errRateLimited)
}
