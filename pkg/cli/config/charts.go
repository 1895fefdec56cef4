package config

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Charts holds the chart configuration file path
type Charts struct {
	Path string
}

// Flags returns CLI flags for Charts configuration
func (c *Charts) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "chart-config",
			Usage:       "YAML file overriding package, majors and colors",
			Category:    "Charts",
			Sources:     cli.EnvVars("TALLY_CHART_CONFIG"),
			Destination: &c.Path,
		},
	}
}

// Configure returns the chart configuration. Without a file the built-in
// marshmallow configuration is used.
func (c *Charts) Configure() (*model.ChartConfig, error) {
	if c.Path == "" {
		return model.DefaultChartConfig(), nil
	}
	return LoadChartConfig(c.Path)
}

// LoadChartConfig reads a YAML file on top of the defaults. Keys missing from
// the file keep their default values.
func LoadChartConfig(path string) (*model.ChartConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "chart configuration file not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read chart configuration file",
			goerr.V("path", path))
	}

	cfg := model.DefaultChartConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, goerr.Wrap(err, "failed to parse chart configuration",
			goerr.V("path", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid chart configuration",
			goerr.V("path", path))
	}

	return cfg, nil
}

// LogValue returns structured log value
func (c Charts) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", c.Path),
	)
}
