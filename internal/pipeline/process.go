package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skolkartan/school-data-etl/internal/domain"
	"github.com/skolkartan/school-data-etl/internal/observability"
)

// SnapshotStore is the storage surface of the process phase.
type SnapshotStore interface {
	ReadRawSnapshot() ([]domain.RawSchool, error)
	ReadFetchMetadata() (*domain.FetchMetadata, error)
	WriteProcessedSnapshot(snap domain.ProcessedSnapshot) error
}

// Publisher pushes processed records to an optional downstream transport.
type Publisher interface {
	PublishSchools(ctx context.Context, schools []domain.NormalizedSchool) error
}

// Processor turns a raw snapshot into the published dataset: normalize,
// classify, aggregate, sort, serialize. It never talks to the source API,
// so it can rerun offline on the same raw snapshot.
type Processor struct {
	store     SnapshotStore
	publisher Publisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	ready     atomic.Bool
}

// NewProcessor creates a Processor. Pass a nil publisher to keep the file
// snapshot as the only output.
func NewProcessor(store SnapshotStore, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock swaps the phase-duration clock, used by tests.
func (p *Processor) SetClock(c clockwork.Clock) { p.clock = c }

// CheckReadiness reports readiness once a snapshot has been produced.
func (p *Processor) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("process phase has not produced a snapshot yet")
	}
	return nil
}

// Run executes the process phase.
func (p *Processor) Run(ctx context.Context) error {
	start := p.clock.Now()

	raws, err := p.store.ReadRawSnapshot()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no raw snapshot found, run the fetch phase first: %w", err)
		}
		return err
	}

	fetchedAt := p.fetchTimestamp()

	schools := make([]domain.NormalizedSchool, 0, len(raws))
	for _, raw := range raws {
		schools = append(schools, domain.NormalizeSchool(raw))
	}

	snap := domain.BuildSnapshot(schools, fetchedAt)
	if err := p.store.WriteProcessedSnapshot(snap); err != nil {
		return err
	}

	for c, n := range snap.Metadata.Categories {
		p.metrics.SchoolsProcessed.WithLabelValues(string(c)).Add(float64(n))
	}
	p.metrics.ProcessingDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)

	if p.publisher != nil {
		if err := p.publisher.PublishSchools(ctx, snap.Schools); err != nil {
			return fmt.Errorf("publish processed schools: %w", err)
		}
	}

	p.logTally(snap.Metadata)
	return nil
}

// fetchTimestamp carries the fetch time over from the raw snapshot
// metadata; without a metadata file it degrades to the processing time
// (BuildSnapshot substitutes now for a zero value).
func (p *Processor) fetchTimestamp() time.Time {
	md, err := p.store.ReadFetchMetadata()
	if err != nil {
		p.logger.Warn("fetch metadata unreadable, using processing time", "error", err)
		return time.Time{}
	}
	if md == nil {
		return time.Time{}
	}
	return md.FetchedAt
}

func (p *Processor) logTally(md domain.SnapshotMetadata) {
	p.logger.Info("process phase complete",
		"schools", md.TotalSchools,
		"f9", md.Categories[domain.CategoryF9],
		"79", md.Categories[domain.Category79],
		"f6", md.Categories[domain.CategoryF6],
		"gymnasium", md.Categories[domain.CategoryGymnasium],
		"anpassad", md.Categories[domain.CategoryAnpassad],
		"other", md.Categories[domain.CategoryOther],
		"with_merit", md.WithMeritData,
		"with_grade6", md.WithGrade6Data,
		"with_gy", md.WithGyData,
	)
}
