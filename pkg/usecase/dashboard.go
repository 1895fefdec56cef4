package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/utils/metrics"
)

const cacheKindFigure = "figure"

type figureBuilder func(ds *model.Dataset, cfg *model.ChartConfig, opts model.ChartOptions) *model.Figure

var figureBuilders = map[types.ChartID]figureBuilder{
	types.ChartMajors:       buildMajors,
	types.ChartMajorsByWeek: buildMajorsByWeek,
	types.ChartVersions:     buildVersions,
	types.ChartInterpreters: buildInterpreters,
}

// DashboardConfig holds optional settings of the dashboard use case
type DashboardConfig struct {
	figureCache interfaces.Cache
	figureTTL   time.Duration
}

// DashboardOption configures the dashboard use case
type DashboardOption func(*DashboardConfig)

// WithFigureCache memoizes rendered figures in the cache for the TTL
func WithFigureCache(cache interfaces.Cache, ttl time.Duration) DashboardOption {
	return func(c *DashboardConfig) {
		c.figureCache = cache
		c.figureTTL = ttl
	}
}

// Dashboard builds the page and its figures from a data source
type Dashboard struct {
	source interfaces.DataSource
	charts *model.ChartConfig
	config DashboardConfig
}

var _ interfaces.Dashboard = (*Dashboard)(nil)

// NewDashboard creates a new Dashboard use case
func NewDashboard(source interfaces.DataSource, charts *model.ChartConfig, opts ...DashboardOption) *Dashboard {
	var cfg DashboardConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dashboard{
		source: source,
		charts: charts,
		config: cfg,
	}
}

// Page returns the page model. Loading the rows here fills the dataset
// cache before the charts ask for it.
func (uc *Dashboard) Page(ctx context.Context) (*model.Page, error) {
	ds, err := uc.source.Fetch(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load downloads")
	}

	// versions are counted with and without Linux downloads
	label := types.VersionLabel(uc.charts.Package)
	versions := model.DistinctDimensions(append(ds.Select(label, false), ds.Select(label, true)...))

	return &model.Page{
		Title:       uc.charts.Title,
		Description: uc.charts.Description,
		Source:      ds.Source.String(),
		Records:     ds.Len(),
		Versions:    len(versions),
		Charts:      chartSpecs(uc.charts),
	}, nil
}

// Figure builds one chart with the given toggles
func (uc *Dashboard) Figure(ctx context.Context, id types.ChartID, opts model.ChartOptions) (*model.Figure, error) {
	logger := ctxlog.From(ctx)

	build, ok := figureBuilders[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrChartNotFound, "unknown chart", goerr.V("chart", id))
	}

	logger.Debug("building figure", "chart", id, "options", opts)

	key := opts.CacheKey(id)
	if fig := uc.cachedFigure(ctx, key); fig != nil {
		return fig, nil
	}

	ds, err := uc.source.Fetch(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load downloads", goerr.V("chart", id))
	}

	fig := build(ds, uc.charts, opts)
	metrics.FiguresRenderedTotal.WithLabelValues(id.String()).Inc()

	uc.storeFigure(ctx, key, fig)
	return fig, nil
}

func (uc *Dashboard) cachedFigure(ctx context.Context, key string) *model.Figure {
	if uc.config.figureCache == nil {
		return nil
	}
	logger := ctxlog.From(ctx)

	data, ok, err := uc.config.figureCache.Get(ctx, key)
	if err != nil {
		logger.Warn("failed to read figure cache", "key", key, "error", err)
		return nil
	}
	if !ok {
		metrics.CacheRequestsTotal.WithLabelValues(cacheKindFigure, metrics.ResultMiss).Inc()
		return nil
	}

	var fig model.Figure
	if err := json.Unmarshal(data, &fig); err != nil {
		logger.Warn("discarding undecodable figure cache entry", "key", key, "error", err)
		return nil
	}
	metrics.CacheRequestsTotal.WithLabelValues(cacheKindFigure, metrics.ResultHit).Inc()
	return &fig
}

func (uc *Dashboard) storeFigure(ctx context.Context, key string, fig *model.Figure) {
	if uc.config.figureCache == nil {
		return
	}

	data, err := json.Marshal(fig)
	if err != nil {
		ctxlog.From(ctx).Warn("failed to encode figure", "key", key, "error", err)
		return
	}
	if err := uc.config.figureCache.Set(ctx, key, data, uc.config.figureTTL); err != nil {
		ctxlog.From(ctx).Warn("failed to write figure cache", "key", key, "error", err)
	}
}
