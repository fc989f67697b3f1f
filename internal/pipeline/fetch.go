// Package pipeline orchestrates the two batch phases: fetching the school
// catalog with its per-unit sub-resources, and processing the raw snapshot
// into the published dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/skolkartan/school-data-etl/internal/domain"
	"github.com/skolkartan/school-data-etl/internal/observability"
)

// SchoolClient is the source API surface the fetch phase needs.
type SchoolClient interface {
	FetchSchoolUnits(ctx context.Context) ([]domain.SchoolUnitRef, error)
	FetchSchoolDetails(ctx context.Context, code string) (*domain.SchoolUnitDetails, error)
	FetchGrStatistics(ctx context.Context, code string) (*domain.GrStatistics, error)
	FetchGyStatistics(ctx context.Context, code string) (*domain.GyStatistics, error)
}

// RawStore persists the fetch phase's output.
type RawStore interface {
	WriteRawSnapshot(schools []domain.RawSchool) error
	WriteFetchMetadata(md domain.FetchMetadata) error
}

// Fetcher drives the full-catalog fetch: paginate the listing, filter out
// unusable units, then fetch detail and statistics for the rest in small
// concurrent batches paced to stay inside the source's rate budget.
type Fetcher struct {
	client  SchoolClient
	store   RawStore
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	batchSize        int
	batchDelay       time.Duration
	progressInterval int

	done  atomic.Int64
	total atomic.Int64
	ready atomic.Bool
}

// NewFetcher creates a Fetcher.
func NewFetcher(client SchoolClient, store RawStore, logger *slog.Logger, metrics *observability.Metrics, batchSize int, batchDelay time.Duration, progressInterval int) *Fetcher {
	return &Fetcher{
		client:           client,
		store:            store,
		logger:           logger,
		metrics:          metrics,
		clock:            clockwork.NewRealClock(),
		batchSize:        batchSize,
		batchDelay:       batchDelay,
		progressInterval: progressInterval,
	}
}

// SetClock swaps the pacing clock, used by tests.
func (f *Fetcher) SetClock(c clockwork.Clock) { f.clock = c }

// CheckReadiness reports readiness once the first batch has completed.
func (f *Fetcher) CheckReadiness(_ context.Context) error {
	if !f.ready.Load() {
		return errors.New("fetch phase has not completed a batch yet")
	}
	return nil
}

// Progress returns how many units have been fetched out of the filtered
// total. Exposed on the operational HTTP surface.
func (f *Fetcher) Progress() (done, total int64) {
	return f.done.Load(), f.total.Load()
}

// Run executes the fetch phase. A catalog failure is fatal; per-unit
// sub-resource failures degrade to nil and never abort the run.
func (f *Fetcher) Run(ctx context.Context) error {
	f.metrics.FetchRunning.Set(1)
	defer f.metrics.FetchRunning.Set(0)

	units, err := f.client.FetchSchoolUnits(ctx)
	if err != nil {
		return fmt.Errorf("fetch school-unit catalog: %w", err)
	}

	valid := make([]domain.SchoolUnitRef, 0, len(units))
	for _, u := range units {
		if u.Validate() {
			valid = append(valid, u)
		}
	}
	filtered := len(units) - len(valid)
	f.metrics.UnitsFiltered.Add(float64(filtered))
	f.total.Store(int64(len(valid)))
	f.logger.Info("catalog filtered", "listed", len(units), "kept", len(valid), "discarded", filtered)

	schools := make([]domain.RawSchool, len(valid))
	for start := 0; start < len(valid); start += f.batchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fetch aborted: %w", err)
		}

		end := min(start+f.batchSize, len(valid))
		batchStart := f.clock.Now()

		// Each fetch writes only its own slot, so the batch shares nothing
		// but the API's rate budget.
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				schools[i] = f.fetchOne(gctx, valid[i])
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never return errors

		f.metrics.BatchDuration.Observe(f.clock.Since(batchStart).Seconds())
		f.metrics.UnitsFetched.Add(float64(end - start))
		f.ready.Store(true)
		f.reportProgress(start, end)

		if end < len(valid) {
			f.clock.Sleep(f.batchDelay)
		}
	}

	md := f.buildMetadata(schools)
	if err := f.store.WriteRawSnapshot(schools); err != nil {
		return err
	}
	if err := f.store.WriteFetchMetadata(md); err != nil {
		return err
	}

	f.logger.Info("fetch phase complete",
		"units", md.TotalUnits,
		"with_details", md.WithDetails,
		"with_gr_statistics", md.WithGrStatistics,
		"with_gy_statistics", md.WithGyStatistics,
	)
	return nil
}

// fetchOne resolves the three sub-resources of a unit independently. Any
// failure, including legitimate absence, leaves that piece nil.
func (f *Fetcher) fetchOne(ctx context.Context, unit domain.SchoolUnitRef) domain.RawSchool {
	raw := domain.RawSchool{SchoolUnit: unit}

	details, err := f.client.FetchSchoolDetails(ctx, unit.Code)
	if err != nil {
		f.logSubResource(unit.Code, "details", err)
	} else {
		raw.Details = details
	}

	gr, err := f.client.FetchGrStatistics(ctx, unit.Code)
	if err != nil {
		f.logSubResource(unit.Code, "statistics_gr", err)
	} else {
		raw.StatisticsGr = gr
	}

	gy, err := f.client.FetchGyStatistics(ctx, unit.Code)
	if err != nil {
		f.logSubResource(unit.Code, "statistics_gy", err)
	} else {
		raw.StatisticsGy = gy
	}

	return raw
}

func (f *Fetcher) logSubResource(code, resource string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		f.logger.Debug("sub-resource absent", "unit", code, "resource", resource)
		return
	}
	f.logger.Warn("sub-resource fetch failed, continuing without it", "unit", code, "resource", resource, "error", err)
}

func (f *Fetcher) reportProgress(start, end int) {
	f.done.Store(int64(end))
	if f.progressInterval <= 0 {
		return
	}
	if start/f.progressInterval != end/f.progressInterval || end == int(f.total.Load()) {
		f.logger.Info("fetch progress", "done", end, "total", f.total.Load())
	}
}

func (f *Fetcher) buildMetadata(schools []domain.RawSchool) domain.FetchMetadata {
	md := domain.FetchMetadata{
		FetchedAt:  f.clock.Now().UTC(),
		TotalUnits: len(schools),
	}
	for _, s := range schools {
		if s.Details != nil {
			md.WithDetails++
		}
		if s.StatisticsGr != nil {
			md.WithGrStatistics++
		}
		if s.StatisticsGy != nil {
			md.WithGyStatistics++
		}
	}
	return md
}
