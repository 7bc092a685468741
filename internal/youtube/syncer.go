package youtube

import (
	"context"
	"errors"
	"sync"
	"time"

	"mcn-dashboard/internal/logging"
	"mcn-dashboard/internal/metrics"
	"mcn-dashboard/internal/worker"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

var (
	ErrSyncRunning = errors.New("a metrics sync is already running")
	ErrBadRange    = errors.New("from must not be after to")
)

// Per-channel sync outcomes, also used as metric labels.
const (
	outcomeSuccess  = "success"
	outcomeFallback = "fallback"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
)

const breakerName = "youtube-analytics"

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Result summarises one sync run. Channels synced through the basic metric
// fallback count in both SuccessCount and FallbackCount.
type Result struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Channels      int    `json:"channels"`
	SuccessCount  int    `json:"successCount"`
	ErrorCount    int    `json:"errorCount"`
	EmptyCount    int    `json:"emptyCount"`
	FallbackCount int    `json:"fallbackCount"`
	RowsUpserted  int    `json:"rowsUpserted"`
}

func (r *Result) add(outcome string, rows int) {
	switch outcome {
	case outcomeSuccess:
		r.SuccessCount++
	case outcomeFallback:
		r.SuccessCount++
		r.FallbackCount++
	case outcomeEmpty:
		r.EmptyCount++
	default:
		r.ErrorCount++
	}
	r.RowsUpserted += rows
}

type SyncerOptions struct {
	// RequestsPerSecond paces Analytics calls across all workers; <= 0 disables pacing.
	RequestsPerSecond float64
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Syncer pulls daily channel metrics from YouTube Analytics into the fact
// table. Connections are spread over the worker pool; channels of the same
// connection are fetched one after another.
type Syncer struct {
	repository Repository
	analytics  Analytics
	pool       *worker.WorkerPool
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Report]
	invalidate Invalidator
	now        func() time.Time

	running    sync.Mutex
	background sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSyncer(repository Repository, analytics Analytics, pool *worker.WorkerPool, invalidator Invalidator, opts SyncerOptions) *Syncer {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 2 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	breaker := gobreaker.NewCircuitBreaker[*Report](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// Missing monetary permission is a per-channel answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermissionError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		repository: repository,
		analytics:  analytics,
		pool:       pool,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker,
		invalidate: invalidator,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Yesterday is the last complete UTC day before now.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DefaultBackfillRange covers the 365 days up to yesterday.
func DefaultBackfillRange(now time.Time) (time.Time, time.Time) {
	to := Yesterday(now)
	return to.AddDate(0, 0, -365), to
}

// SyncDay syncs a single day; a zero date means yesterday.
func (s *Syncer) SyncDay(ctx context.Context, date time.Time) (*Result, error) {
	if date.IsZero() {
		date = Yesterday(s.now())
	}
	return s.Run(ctx, date, date)
}

// Run syncs [from, to] for every connected channel and waits for completion.
func (s *Syncer) Run(ctx context.Context, from, to time.Time) (*Result, error) {
	if to.Before(from) {
		return nil, ErrBadRange
	}
	if !s.running.TryLock() {
		return nil, ErrSyncRunning
	}
	defer s.running.Unlock()
	return s.run(ctx, from, to)
}

// Start runs a sync in the background, typically a long backfill. It fails
// fast when another sync holds the lock.
func (s *Syncer) Start(from, to time.Time) error {
	if to.Before(from) {
		return ErrBadRange
	}
	if !s.running.TryLock() {
		return ErrSyncRunning
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Unlock()
		if _, err := s.run(s.ctx, from, to); err != nil {
			logging.Error().Err(err).Msg("background metrics sync failed")
		}
	}()
	return nil
}

// Close cancels background runs and waits for them to stop.
func (s *Syncer) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) run(ctx context.Context, from, to time.Time) (*Result, error) {
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{From: from.Format(dateLayout), To: to.Format(dateLayout)}
	log := logging.Ctx(ctx).With().Str("from", res.From).Str("to", res.To).Logger()

	targets, err := s.repository.SyncTargets(ctx)
	if err != nil {
		return nil, err
	}
	res.Channels = len(targets)
	if len(targets) == 0 {
		log.Info().Msg("no channels to sync")
		return res, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, group := range groupByConnection(targets) {
		wg.Add(1)
		err := s.pool.SubmitWait(ctx, func(poolCtx context.Context) error {
			defer wg.Done()
			for _, t := range group {
				outcome, rows := outcomeError, 0
				if ctx.Err() == nil && poolCtx.Err() == nil {
					outcome, rows = s.syncChannel(ctx, t, from, to)
				}
				metrics.SyncChannels.WithLabelValues(outcome).Inc()
				mu.Lock()
				res.add(outcome, rows)
				mu.Unlock()
			}
			return nil
		})
		if err != nil {
			wg.Done()
			log.Warn().Err(err).Uint64("connection_id", group[0].ConnectionID).Msg("could not schedule connection sync")
			metrics.SyncChannels.WithLabelValues(outcomeError).Add(float64(len(group)))
			mu.Lock()
			res.ErrorCount += len(group)
			mu.Unlock()
		}
	}
	wg.Wait()

	if res.RowsUpserted > 0 {
		metrics.SyncRows.Add(float64(res.RowsUpserted))
		s.invalidate.Invalidate(context.WithoutCancel(ctx))
	}

	log.Info().
		Int("channels", res.Channels).
		Int("success", res.SuccessCount).
		Int("errors", res.ErrorCount).
		Int("empty", res.EmptyCount).
		Int("fallback", res.FallbackCount).
		Int("rows", res.RowsUpserted).
		Dur("duration", time.Since(start)).
		Msg("metrics sync finished")
	return res, nil
}

func (s *Syncer) syncChannel(ctx context.Context, t Target, from, to time.Time) (string, int) {
	log := logging.Ctx(ctx).With().Str("youtube_channel_id", t.YoutubeChannelID).Uint64("channel_id", t.ChannelID).Logger()

	days, fallback, err := s.fetch(ctx, t, from, to)
	if err != nil {
		log.Error().Err(err).Msg("fetch channel analytics")
		return outcomeError, 0
	}
	if len(days) == 0 {
		log.Debug().Msg("no analytics rows")
		return outcomeEmpty, 0
	}
	if err := s.repository.UpsertMetrics(ctx, t.ChannelID, days); err != nil {
		log.Error().Err(err).Msg("store channel metrics")
		return outcomeError, 0
	}

	if fallback {
		return outcomeFallback, len(days)
	}
	return outcomeSuccess, len(days)
}

// fetch asks for the full metric set and retries with the basic set when the
// account may not read revenue. The bool reports whether the fallback was used.
func (s *Syncer) fetch(ctx context.Context, t Target, from, to time.Time) ([]DayMetrics, bool, error) {
	q := ReportQuery{ChannelID: t.YoutubeChannelID, From: from, To: to, Metrics: FullMetrics}
	report, err := s.query(ctx, t.RefreshToken, q)
	if err == nil {
		days, err := report.Days()
		return days, false, err
	}
	if !IsPermissionError(err) {
		return nil, false, err
	}

	logging.Ctx(ctx).Info().Err(err).Str("youtube_channel_id", t.YoutubeChannelID).Msg("revenue not readable, falling back to views and watch time")
	q.Metrics = BasicMetrics
	report, err = s.query(ctx, t.RefreshToken, q)
	if err != nil {
		return nil, false, err
	}
	days, err := report.Days()
	return days, true, err
}

func (s *Syncer) query(ctx context.Context, refreshToken string, q ReportQuery) (*Report, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.breaker.Execute(func() (*Report, error) {
		return s.analytics.Query(ctx, refreshToken, q)
	})
}

// groupByConnection keeps the order of targets, which arrive sorted by connection.
func groupByConnection(targets []Target) [][]Target {
	var groups [][]Target
	for i, t := range targets {
		if i == 0 || t.ConnectionID != targets[i-1].ConnectionID {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}
