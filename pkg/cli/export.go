package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/service/render"
	"github.com/urfave/cli/v3"
)

const (
	formatJSON = "json"
	formatSVG  = "svg"
)

func cmdExport() *cli.Command {
	var (
		dashCfg      dashboardConfig
		chartID      string
		format       string
		output       string
		percentages  bool
		includeLinux bool
		trace        int
	)

	flags := joinFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "chart",
				Aliases:     []string{"c"},
				Usage:       "Chart ID (majors, majors-by-week, versions, interpreters)",
				Required:    true,
				Destination: &chartID,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "Output format (json, svg)",
				Value:       formatJSON,
				Destination: &format,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output file (stdout when empty)",
				Destination: &output,
			},
			&cli.BoolFlag{
				Name:        "percentages",
				Usage:       "Show shares instead of download counts",
				Value:       true,
				Destination: &percentages,
			},
			&cli.BoolFlag{
				Name:        "include-linux",
				Usage:       "Include downloads from Linux",
				Destination: &includeLinux,
			},
			&cli.IntFlag{
				Name:        "trace",
				Usage:       "Pie to draw for multi-pie charts in SVG output",
				Destination: &trace,
			},
		},
		dashCfg.Flags(),
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write one chart as figure JSON or SVG",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id := types.ChartID(chartID)
			if err := id.Validate(); err != nil {
				return goerr.Wrap(err, "invalid chart")
			}
			if format != formatJSON && format != formatSVG {
				return goerr.New("invalid format", goerr.V("format", format))
			}

			dashboard, cleanup, err := dashCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			fig, err := dashboard.Figure(ctx, id, model.ChartOptions{
				Percentages:  percentages,
				IncludeLinux: includeLinux,
			})
			if err != nil {
				return err
			}

			var w io.Writer = c.Root().Writer
			if w == nil {
				w = os.Stdout
			}
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
				}
				defer f.Close()
				w = f
			}

			return writeFigure(w, fig, format, trace)
		},
	}
}

func writeFigure(w io.Writer, fig *model.Figure, format string, trace int) error {
	if format == formatSVG {
		return render.SVG(w, fig, render.WithTrace(trace))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fig); err != nil {
		return goerr.Wrap(err, "failed to encode figure")
	}
	return nil
}
