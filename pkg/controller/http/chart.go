package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/service/render"
)

// Query parameters of chart requests
const (
	paramPercentages  = "percentages"
	paramIncludeLinux = "include_linux"
	paramTrace        = "trace"
	paramWidth        = "width"
)

// ChartHandler serves the dashboard page model and its figures
type ChartHandler struct {
	dashboard interfaces.Dashboard
}

// NewChartHandler creates a new chart handler
func NewChartHandler(dashboard interfaces.Dashboard) *ChartHandler {
	return &ChartHandler{dashboard: dashboard}
}

// HandlePage returns the page model
func (h *ChartHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.dashboard.Page(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, page)
}

// HandleFigure returns one figure as JSON
func (h *ChartHandler) HandleFigure(w http.ResponseWriter, r *http.Request) {
	fig, err := h.figure(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, fig)
}

// HandleSVG returns one figure drawn as SVG
func (h *ChartHandler) HandleSVG(w http.ResponseWriter, r *http.Request) {
	fig, err := h.figure(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var opts []render.Option
	query := r.URL.Query()
	if v := query.Get(paramTrace); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n >= len(fig.Traces) {
			writeError(w, r, goerr.Wrap(model.ErrInvalidOptions, "invalid trace", goerr.V("trace", v)))
			return
		}
		opts = append(opts, render.WithTrace(n))
	}
	if v := query.Get(paramWidth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 || n > 4000 {
			writeError(w, r, goerr.Wrap(model.ErrInvalidOptions, "invalid width", goerr.V("width", v)))
			return
		}
		height := fig.Layout.Height
		if height == 0 {
			height = n * 3 / 8
		}
		opts = append(opts, render.WithSize(n, height))
	}

	// Render into a buffer so a failure can still produce an error response
	var buf bytes.Buffer
	if err := render.SVG(&buf, fig, opts...); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *ChartHandler) figure(r *http.Request) (*model.Figure, error) {
	id := types.ChartID(chi.URLParam(r, "id"))
	opts, err := ParseChartOptions(r)
	if err != nil {
		return nil, err
	}
	return h.dashboard.Figure(r.Context(), id, opts)
}

// ParseChartOptions reads the chart toggles from the query string. Missing
// toggles keep their defaults.
func ParseChartOptions(r *http.Request) (model.ChartOptions, error) {
	opts := model.DefaultChartOptions()
	query := r.URL.Query()

	for name, dst := range map[string]*bool{
		paramPercentages:  &opts.Percentages,
		paramIncludeLinux: &opts.IncludeLinux,
	} {
		v := query.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, goerr.Wrap(model.ErrInvalidOptions, "invalid boolean parameter",
				goerr.V("name", name), goerr.V("value", v))
		}
		*dst = b
	}

	return opts, nil
}
