package usecase

import (
	"sort"
	"time"

	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

const weekLayout = "2006-01-02"

// chartSpecs lists the page sections in display order
func chartSpecs(cfg *model.ChartConfig) []model.ChartSpec {
	pkg := cfg.Package
	return []model.ChartSpec{
		{
			ID:              types.ChartMajors,
			Title:           pkg + " " + majorsTitle(cfg) + " (" + cfg.Period + ")",
			Height:          300,
			HasPercentages:  true,
			HasIncludeLinux: true,
		},
		{
			ID:              types.ChartMajorsByWeek,
			Title:           pkg + " " + majorsTitle(cfg) + " by week (" + cfg.Period + ")",
			Height:          300,
			HasPercentages:  true,
			HasIncludeLinux: true,
		},
		{
			ID:              types.ChartVersions,
			Title:           "most downloaded versions (" + cfg.Period + ")",
			Height:          350,
			HasPercentages:  true,
			HasIncludeLinux: true,
		},
		{
			ID:              types.ChartInterpreters,
			Title:           pkg + " " + majorsTitle(cfg) + " by Python version (" + cfg.Period + ")",
			Height:          300,
			HasIncludeLinux: true,
		},
	}
}

// majorsTitle renders "2 vs. 3"
func majorsTitle(cfg *model.ChartConfig) string {
	title := ""
	for i, m := range cfg.Majors {
		if i > 0 {
			title += " vs. "
		}
		title += m.ID
	}
	return title
}

func findSpec(cfg *model.ChartConfig, id types.ChartID) model.ChartSpec {
	for _, spec := range chartSpecs(cfg) {
		if spec.ID == id {
			return spec
		}
	}
	return model.ChartSpec{ID: id}
}

func baseLayout(cfg *model.ChartConfig, spec model.ChartSpec) model.Layout {
	return model.Layout{
		Font:   cfg.Font,
		Height: spec.Height,
	}
}

func selectMajor(ds *model.Dataset, cfg *model.ChartConfig, major model.Major, includeLinux bool) []*model.Download {
	var result []*model.Download
	for _, r := range ds.Select(types.MajorLabel(cfg.Package), includeLinux) {
		if r.Dimension() == major.ID {
			result = append(result, r)
		}
	}
	return result
}

// buildMajors compares total downloads of each major as horizontal bars
func buildMajors(ds *model.Dataset, cfg *model.ChartConfig, opts model.ChartOptions) *model.Figure {
	spec := findSpec(cfg, types.ChartMajors)

	totals := make([]int64, len(cfg.Majors))
	labels := make([]string, len(cfg.Majors))
	colors := make([]string, len(cfg.Majors))
	for i, m := range cfg.Majors {
		totals[i] = model.SumDownloads(selectMajor(ds, cfg, m, opts.IncludeLinux))
		labels[i] = m.Label
		colors[i] = m.Color
	}

	layout := baseLayout(cfg, spec)
	layout.Margin = model.Margin{Top: 10}

	var values []float64
	if opts.Percentages {
		values = Shares(totals)
		layout.XAxis = model.Axis{Title: "percentage", TickFormat: model.TickPercent}
	} else {
		values = toFloats(totals)
		layout.XAxis = model.Axis{Title: "downloads", TickFormat: model.TickInteger}
	}

	return &model.Figure{
		ID:    spec.ID,
		Title: spec.Title,
		Traces: []model.Trace{
			{
				Kind:       model.TraceBar,
				Labels:     labels,
				Values:     values,
				Colors:     colors,
				Horizontal: true,
			},
		},
		Layout: layout,
	}
}

// buildMajorsByWeek shows weekly downloads per major, either side by side or
// as stacked shares of the weeks every major has data for
func buildMajorsByWeek(ds *model.Dataset, cfg *model.ChartConfig, opts model.ChartOptions) *model.Figure {
	spec := findSpec(cfg, types.ChartMajorsByWeek)

	series := make([][]WeekPoint, len(cfg.Majors))
	for i, m := range cfg.Majors {
		series[i] = DownloadsByWeek(selectMajor(ds, cfg, m, opts.IncludeLinux))
	}

	layout := baseLayout(cfg, spec)
	layout.Margin = model.Margin{Top: 30}
	layout.XAxis = model.Axis{Title: "week"}

	traces := make([]model.Trace, len(cfg.Majors))
	if opts.Percentages {
		weeks := commonWeeks(series)
		shares := make([][]float64, len(cfg.Majors))
		for i := range shares {
			shares[i] = make([]float64, len(weeks))
		}
		for w, week := range weeks {
			values := make([]int64, len(series))
			for i, points := range series {
				values[i] = downloadsAt(points, week)
			}
			for i, share := range Shares(values) {
				shares[i][w] = share
			}
		}

		labels := formatWeeks(weeks)
		for i, m := range cfg.Majors {
			traces[i] = model.Trace{
				Kind:   model.TraceBar,
				Name:   m.Label,
				Labels: labels,
				Values: shares[i],
				Color:  m.Color,
			}
		}
		layout.BarMode = model.BarModeStack
		layout.YAxis = model.Axis{Title: "percentage", TickFormat: model.TickPercentDetail}
	} else {
		for i, m := range cfg.Majors {
			weeks := make([]time.Time, len(series[i]))
			values := make([]float64, len(series[i]))
			for j, p := range series[i] {
				weeks[j] = p.Week
				values[j] = float64(p.Downloads)
			}
			traces[i] = model.Trace{
				Kind:   model.TraceBar,
				Name:   m.Label,
				Labels: formatWeeks(weeks),
				Values: values,
				Color:  m.Color,
			}
		}
		layout.BarMode = model.BarModeGroup
		layout.YAxis = model.Axis{Title: "downloads", TickFormat: model.TickInteger}
	}

	return &model.Figure{
		ID:     spec.ID,
		Title:  spec.Title,
		Traces: traces,
		Layout: layout,
	}
}

// buildVersions ranks the most downloaded versions, smallest bar first so the
// largest ends up on top of a horizontal bar chart
func buildVersions(ds *model.Dataset, cfg *model.ChartConfig, opts model.ChartOptions) *model.Figure {
	spec := findSpec(cfg, types.ChartVersions)

	records := ds.Select(types.VersionLabel(cfg.Package), opts.IncludeLinux)
	top := TopBuckets(GroupSum(records, (*model.Download).Dimension), cfg.TopVersions)

	labels := make([]string, len(top))
	colors := make([]string, len(top))
	totals := make([]int64, len(top))
	for i, b := range top {
		j := len(top) - 1 - i
		labels[j] = b.Key
		colors[j] = cfg.VersionColor(b.Key)
		totals[j] = b.Downloads
	}

	layout := baseLayout(cfg, spec)
	layout.Margin = model.Margin{Top: 5, Bottom: 50}

	var values []float64
	if opts.Percentages {
		values = Shares(totals)
		layout.XAxis = model.Axis{Title: "percentage", TickFormat: model.TickPercentDetail}
	} else {
		values = toFloats(totals)
		layout.XAxis = model.Axis{Title: "downloads", TickFormat: model.TickInteger}
	}

	return &model.Figure{
		ID:    spec.ID,
		Title: spec.Title,
		Traces: []model.Trace{
			{
				Kind:       model.TraceBar,
				Labels:     labels,
				Values:     values,
				Colors:     colors,
				Horizontal: true,
			},
		},
		Layout: layout,
	}
}

// buildInterpreters draws one donut per major with a slice per interpreter version
func buildInterpreters(ds *model.Dataset, cfg *model.ChartConfig, opts model.ChartOptions) *model.Figure {
	spec := findSpec(cfg, types.ChartInterpreters)
	combined := ds.Select(types.LabelCombined, opts.IncludeLinux)

	n := len(cfg.Majors)
	layout := baseLayout(cfg, spec)
	layout.Margin = model.Margin{Top: 5, Bottom: 60}
	layout.Columns = n

	traces := make([]model.Trace, n)
	for i, m := range cfg.Majors {
		var records []*model.Download
		for _, r := range combined {
			if r.PackageMajor(cfg.Package) == m.ID {
				records = append(records, r)
			}
		}

		buckets := GroupSum(records, (*model.Download).InterpreterVersion)
		labels := make([]string, len(buckets))
		values := make([]float64, len(buckets))
		colors := make([]string, len(buckets))
		for j, b := range buckets {
			labels[j] = b.Key
			values[j] = float64(b.Downloads)
			colors[j] = cfg.InterpreterColor(m, b.Key)
		}

		traces[i] = model.Trace{
			Kind:   model.TracePie,
			Name:   m.Label,
			Labels: labels,
			Values: values,
			Colors: colors,
			Hole:   0.6,
			Column: i,
		}
		layout.Annotations = append(layout.Annotations, model.Annotation{
			Text: m.Label,
			X:    (float64(i) + 0.5) / float64(n),
			Y:    0.5,
			Size: 25,
		})
	}

	return &model.Figure{
		ID:     spec.ID,
		Title:  spec.Title,
		Traces: traces,
		Layout: layout,
	}
}

// commonWeeks returns the weeks present in every series, in order
func commonWeeks(series [][]WeekPoint) []time.Time {
	if len(series) == 0 {
		return nil
	}

	counts := make(map[time.Time]int)
	for _, points := range series {
		for _, p := range points {
			counts[p.Week]++
		}
	}

	var weeks []time.Time
	for week, count := range counts {
		if count == len(series) {
			weeks = append(weeks, week)
		}
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].Before(weeks[j])
	})
	return weeks
}

func downloadsAt(points []WeekPoint, week time.Time) int64 {
	for _, p := range points {
		if p.Week.Equal(week) {
			return p.Downloads
		}
	}
	return 0
}

func formatWeeks(weeks []time.Time) []string {
	labels := make([]string, len(weeks))
	for i, w := range weeks {
		labels[i] = w.Format(weekLayout)
	}
	return labels
}

func toFloats(values []int64) []float64 {
	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = float64(v)
	}
	return result
}
