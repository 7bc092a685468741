package dashboard

import (
	"context"
	"fmt"
	"time"

	"mcn-dashboard/internal/logging"
	"mcn-dashboard/internal/metrics"
	"mcn-dashboard/internal/visibility"
	"mcn-dashboard/redis"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const cacheVersionKey = "dashboard:version"

// View names, used for cache keys and metric labels.
const (
	ViewSummary    = "summary"
	ViewChannels   = "channels"
	ViewTeams      = "team_summary"
	ViewNetworks   = "network_summary"
	ViewProjects   = "project_summary"
	ViewTimeseries = "timeseries"
)

var thousand = decimal.NewFromInt(1000)

// RPM is revenue per thousand views. It is 0 when there are no views.
func RPM(revenue decimal.Decimal, views int64) decimal.Decimal {
	if views <= 0 {
		return decimal.Zero
	}
	return revenue.Mul(thousand).Div(decimal.NewFromInt(views))
}

type Summary struct {
	Totals
	AvgRPM decimal.Decimal `json:"avg_rpm"`
}

type ChannelMetrics struct {
	ChannelRow
	RPM decimal.Decimal `json:"rpm"`
}

type Overview struct {
	Summary    *Summary
	Channels   []ChannelMetrics
	Timeseries []TimeseriesRow
}

type Service interface {
	Summary(ctx context.Context, caller visibility.Caller, f Filter) (*Summary, error)
	Channels(ctx context.Context, caller visibility.Caller, f Filter) ([]ChannelMetrics, error)
	Teams(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error)
	Networks(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error)
	Projects(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error)
	Timeseries(ctx context.Context, caller visibility.Caller, f Filter) ([]TimeseriesRow, error)
	Overview(ctx context.Context, caller visibility.Caller, f Filter) (*Overview, error)
	// Invalidate drops every cached dashboard result.
	Invalidate(ctx context.Context)
}

type ScopeResolver interface {
	Resolve(ctx context.Context, caller visibility.Caller) (visibility.Scope, error)
}

type Options struct {
	QueryTimeout time.Duration
	Cache        *redis.Cache
	CacheTTL     time.Duration
}

type service struct {
	repo     Repository
	resolver ScopeResolver
	opts     Options
}

func NewService(repo Repository, resolver ScopeResolver, opts Options) Service {
	return &service{repo: repo, resolver: resolver, opts: opts}
}

func (s *service) Summary(ctx context.Context, caller visibility.Caller, f Filter) (*Summary, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.summary(ctx, scope, f)
}

func (s *service) Channels(ctx context.Context, caller visibility.Caller, f Filter) ([]ChannelMetrics, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.channels(ctx, scope, f)
}

func (s *service) Teams(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error) {
	return s.groups(ctx, caller, f, ViewTeams, s.repo.Teams)
}

func (s *service) Networks(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error) {
	return s.groups(ctx, caller, f, ViewNetworks, s.repo.Networks)
}

func (s *service) Projects(ctx context.Context, caller visibility.Caller, f Filter) ([]GroupRow, error) {
	return s.groups(ctx, caller, f, ViewProjects, s.repo.Projects)
}

func (s *service) Timeseries(ctx context.Context, caller visibility.Caller, f Filter) ([]TimeseriesRow, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.timeseries(ctx, scope, f)
}

// Overview runs the summary, channel and timeseries views concurrently
// against a single resolved scope.
func (s *service) Overview(ctx context.Context, caller visibility.Caller, f Filter) (*Overview, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Summary, err = s.summary(gctx, scope, f)
		return err
	})
	g.Go(func() error {
		var err error
		out.Channels, err = s.channels(gctx, scope, f)
		return err
	})
	g.Go(func() error {
		var err error
		out.Timeseries, err = s.timeseries(gctx, scope, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Invalidate(ctx context.Context) {
	s.opts.Cache.IncrementVersion(ctx, cacheVersionKey)
}

func (s *service) summary(ctx context.Context, scope visibility.Scope, f Filter) (*Summary, error) {
	if scope.Empty() {
		return &Summary{Totals: Totals{TotalRevenue: decimal.Zero}, AvgRPM: decimal.Zero}, nil
	}

	totals, err := cached(ctx, s, ViewSummary, scope, f, s.repo.Summary)
	if err != nil {
		return nil, err
	}
	return &Summary{Totals: totals, AvgRPM: RPM(totals.TotalRevenue, totals.TotalViews)}, nil
}

func (s *service) channels(ctx context.Context, scope visibility.Scope, f Filter) ([]ChannelMetrics, error) {
	if scope.Empty() {
		return []ChannelMetrics{}, nil
	}

	rows, err := cached(ctx, s, ViewChannels, scope, f, s.repo.Channels)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelMetrics, len(rows))
	for i, row := range rows {
		out[i] = ChannelMetrics{ChannelRow: row, RPM: RPM(row.Revenue, row.Views)}
	}
	return out, nil
}

func (s *service) timeseries(ctx context.Context, scope visibility.Scope, f Filter) ([]TimeseriesRow, error) {
	if scope.Empty() {
		return []TimeseriesRow{}, nil
	}
	return cached(ctx, s, ViewTimeseries, scope, f, s.repo.Timeseries)
}

func (s *service) groups(
	ctx context.Context,
	caller visibility.Caller,
	f Filter,
	view string,
	load func(context.Context, Query) ([]GroupRow, error),
) ([]GroupRow, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []GroupRow{}, nil
	}
	return cached(ctx, s, view, scope, f, load)
}

// cached serves view from the versioned cache when possible, otherwise runs
// load under the query timeout and stores the result. Cache failures only
// cost a cache miss.
func cached[T any](
	ctx context.Context,
	s *service,
	view string,
	scope visibility.Scope,
	f Filter,
	load func(context.Context, Query) (T, error),
) (T, error) {
	var key string
	if s.opts.Cache.Enabled() {
		if version, err := s.opts.Cache.GetVersion(ctx, cacheVersionKey); err != nil {
			// an unknown version could match entries older than the last invalidation
			logging.Ctx(ctx).Warn().Err(err).Msg("dashboard cache version unavailable, bypassing cache")
		} else {
			key = fmt.Sprintf("dashboard:v%d:%s:%s:%s", version, view, scope.Key(), f.Key())
		}
	}
	if key != "" {
		var hit T
		found, err := s.opts.Cache.Get(ctx, key, &hit)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		}
		if found {
			metrics.CacheHits.Inc()
			return hit, nil
		}
		metrics.CacheMisses.Inc()
	}

	qctx := ctx
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := load(qctx, BuildQuery(scope, f))
	metrics.RecordAggregation(view, time.Since(start), err)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("dashboard %s: %w", view, err)
	}

	if key != "" {
		if err := s.opts.Cache.Set(ctx, key, result, s.opts.CacheTTL); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
		}
	}
	return result, nil
}
