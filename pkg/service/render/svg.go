package render

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 800
	defaultHeight = 300
)

type options struct {
	width  int
	height int
	trace  int
}

// Option configures SVG rendering
type Option func(*options)

// WithSize sets the image size in pixels
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithTrace selects which trace of a multi-pie figure is drawn
func WithTrace(index int) Option {
	return func(o *options) {
		o.trace = index
	}
}

// SVG draws the figure as an SVG image. Figures without data are drawn as a
// placeholder rather than failing.
func SVG(w io.Writer, fig *model.Figure, opts ...Option) error {
	o := options{width: defaultWidth, height: defaultHeight}
	if fig.Layout.Height > 0 {
		o.height = fig.Layout.Height
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(fig.Traces) == 0 || isEmpty(fig.Traces) {
		return placeholder(w, fig.Title, o)
	}

	var err error
	switch {
	case fig.Traces[0].Kind == model.TracePie:
		err = renderPie(w, fig, o)
	case len(fig.Traces) > 1 && fig.Layout.BarMode == model.BarModeStack:
		err = renderStacked(w, fig, o)
	default:
		err = renderBars(w, fig, o)
	}
	if err != nil {
		return goerr.Wrap(err, "failed to render figure", goerr.V("chart", fig.ID))
	}
	return nil
}

func renderPie(w io.Writer, fig *model.Figure, o options) error {
	if o.trace < 0 || o.trace >= len(fig.Traces) {
		return goerr.New("trace index out of range", goerr.V("trace", o.trace))
	}
	trace := fig.Traces[o.trace]
	if total(trace.Values) == 0 {
		return placeholder(w, fig.Title, o)
	}

	values := make([]chart.Value, 0, trace.Len())
	for i, v := range trace.Values {
		values = append(values, chart.Value{
			Label: trace.Labels[i],
			Value: v,
			Style: fillStyle(colorAt(trace, i)),
		})
	}

	pie := chart.PieChart{
		Title:  fig.Title + " - " + trace.Name,
		Width:  o.width,
		Height: o.height,
		Values: values,
	}
	return pie.Render(chart.SVG, w)
}

// renderBars draws all traces as one bar series. With several traces the
// bars of one label are drawn side by side.
func renderBars(w io.Writer, fig *model.Figure, o options) error {
	bars := barValues(fig.Traces)

	var maxValue float64
	for _, b := range bars {
		if b.Value > maxValue {
			maxValue = b.Value
		}
	}
	if maxValue <= 0 {
		return placeholder(w, fig.Title, o)
	}

	bc := chart.BarChart{
		Title:  fig.Title,
		Width:  o.width,
		Height: o.height,
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxValue},
			ValueFormatter: tickFormatter(axisFormat(fig)),
		},
		BarWidth: barWidth(o.width, len(bars)),
		Bars:     bars,
	}
	return bc.Render(chart.SVG, w)
}

// barValues lays out the bars of all traces. A single trace keeps its order.
// Several traces are aligned on the sorted union of their labels, and a trace
// without a point for a label gets a zero bar there.
func barValues(traces []model.Trace) []chart.Value {
	if len(traces) == 1 {
		trace := traces[0]
		bars := make([]chart.Value, 0, trace.Len())
		for i, v := range trace.Values {
			bars = append(bars, chart.Value{
				Label: trace.Labels[i],
				Value: v,
				Style: fillStyle(colorAt(trace, i)),
			})
		}
		return bars
	}

	var bars []chart.Value
	for _, label := range unionLabels(traces) {
		for _, trace := range traces {
			bar := chart.Value{
				Label: label + " " + trace.Name,
				Style: fillStyle(trace.Color),
			}
			for i, l := range trace.Labels {
				if l == label && i < trace.Len() {
					bar.Value = trace.Values[i]
					bar.Style = fillStyle(colorAt(trace, i))
					break
				}
			}
			bars = append(bars, bar)
		}
	}
	return bars
}

func unionLabels(traces []model.Trace) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, trace := range traces {
		for _, l := range trace.Labels {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

func renderStacked(w io.Writer, fig *model.Figure, o options) error {
	first := fig.Traces[0]
	stacked := make([]chart.StackedBar, 0, first.Len())
	for i, label := range first.Labels {
		bar := chart.StackedBar{Name: label}
		for _, trace := range fig.Traces {
			if i >= trace.Len() {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Label: trace.Name,
				Value: trace.Values[i],
				Style: fillStyle(colorAt(trace, i)),
			})
		}
		if total(chartValues(bar.Values)) == 0 {
			continue
		}
		stacked = append(stacked, bar)
	}
	if len(stacked) == 0 {
		return placeholder(w, fig.Title, o)
	}
	for i := range stacked {
		stacked[i].Width = barWidth(o.width, len(stacked))
	}

	sbc := chart.StackedBarChart{
		Title:  fig.Title,
		Width:  o.width,
		Height: o.height,
		Bars:   stacked,
	}
	return sbc.Render(chart.SVG, w)
}

// barWidth fits n bars into the plot area
func barWidth(width, n int) int {
	const axisSpace, spacing, minWidth = 120, 10, 4
	w := (width-axisSpace)/n - spacing
	if w < minWidth {
		return minWidth
	}
	return w
}

func placeholder(w io.Writer, title string, o options) error {
	_, err := fmt.Fprintf(w,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><text x="50%%" y="50%%" text-anchor="middle">%s: no data</text></svg>`,
		o.width, o.height, html.EscapeString(title))
	if err != nil {
		return goerr.Wrap(err, "failed to write placeholder")
	}
	return nil
}

func fillStyle(color string) chart.Style {
	if color == "" {
		return chart.Style{}
	}
	c := drawing.ColorFromHex(color)
	return chart.Style{
		FillColor:   c,
		StrokeColor: c,
	}
}

func colorAt(trace model.Trace, i int) string {
	if i < len(trace.Colors) {
		return trace.Colors[i]
	}
	return trace.Color
}

func axisFormat(fig *model.Figure) string {
	if fig.Traces[0].Horizontal {
		return fig.Layout.XAxis.TickFormat
	}
	return fig.Layout.YAxis.TickFormat
}

func tickFormatter(format string) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return fmt.Sprint(v)
		}
		return FormatTick(format, f)
	}
}

// FormatTick formats an axis value with the figure's tick format
func FormatTick(format string, v float64) string {
	switch format {
	case model.TickPercent:
		return strconv.FormatFloat(v*100, 'f', 0, 64) + "%"
	case model.TickPercentDetail:
		return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
	default:
		return groupThousands(int64(v))
	}
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func isEmpty(traces []model.Trace) bool {
	for _, t := range traces {
		if t.Len() > 0 {
			return false
		}
	}
	return true
}

func total(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

func chartValues(values []chart.Value) []float64 {
	return chart.Values(values).Values()
}
