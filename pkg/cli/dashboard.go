package cli

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/cli/config"
	"github.com/secmon-lab/tally/pkg/repository"
	"github.com/secmon-lab/tally/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// dashboardConfig groups the settings shared by serve and export
type dashboardConfig struct {
	warehouse config.Warehouse
	cache     config.Cache
	charts    config.Charts
}

func (d *dashboardConfig) Flags() []cli.Flag {
	return joinFlags(
		d.warehouse.Flags(),
		d.cache.Flags(),
		d.charts.Flags(),
	)
}

// build wires cache, data source and chart configuration into the dashboard
// use case. The returned function releases the source and the cache.
func (d *dashboardConfig) build(ctx context.Context) (*usecase.Dashboard, func(), error) {
	logger := ctxlog.From(ctx)

	charts, err := d.charts.Configure()
	if err != nil {
		return nil, nil, err
	}

	backend, err := d.cache.Configure(ctx)
	if err != nil {
		return nil, nil, err
	}

	source, err := d.warehouse.Configure(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, nil, goerr.Wrap(err, "failed to configure data source",
			goerr.V("mode", d.warehouse.Mode()))
	}

	cached := repository.NewCached(source, backend, d.cache.TTL())

	var opts []usecase.DashboardOption
	if d.cache.Graphs {
		opts = append(opts, usecase.WithFigureCache(backend, d.cache.TTL()))
	}

	cleanup := func() {
		if err := cached.Close(); err != nil {
			logger.Warn("failed to close data source", "error", err)
		}
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}

	return usecase.NewDashboard(cached, charts, opts...), cleanup, nil
}

func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}
