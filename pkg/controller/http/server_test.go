package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/tally/pkg/controller/http"
	"github.com/secmon-lab/tally/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/repository"
	"github.com/secmon-lab/tally/pkg/usecase"
)

func newTestServer(t *testing.T, dashboard *usecase.Dashboard) *httptest.Server {
	t.Helper()
	ctx := ctxlog.With(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	server, err := controller.NewServer(ctx, ":0", dashboard, controller.WithFrontend(newTestFS()))
	gt.NoError(t, err).Required()

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func newStaticDashboard(t *testing.T) *usecase.Dashboard {
	t.Helper()
	source, err := repository.NewStatic("")
	gt.NoError(t, err).Required()
	return usecase.NewDashboard(source, model.DefaultChartConfig())
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	if v != nil {
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(v)).Required()
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	var body map[string]string
	resp := getJSON(t, ts.URL+"/health", &body)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, body["status"], "healthy")
	gt.Equal(t, body["service"], "tally")
}

func TestServer_Dashboard(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	var page model.Page
	resp := getJSON(t, ts.URL+"/api/dashboard", &page)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, resp.Header.Get("Access-Control-Allow-Origin"), "*")
	gt.Equal(t, page.Source, "static")
	gt.Equal(t, len(page.Charts), 4)
}

func TestServer_Figure(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	t.Run("default options", func(t *testing.T) {
		var fig model.Figure
		resp := getJSON(t, ts.URL+"/api/charts/majors", &fig)
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.Equal(t, fig.ID, types.ChartMajors)
		gt.Equal(t, fig.Layout.XAxis.TickFormat, model.TickPercent)
	})

	t.Run("counts", func(t *testing.T) {
		var fig model.Figure
		resp := getJSON(t, ts.URL+"/api/charts/majors?percentages=false&include_linux=true", &fig)
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.Equal(t, fig.Layout.XAxis.TickFormat, model.TickInteger)
	})

	t.Run("unknown chart", func(t *testing.T) {
		var body map[string]string
		resp := getJSON(t, ts.URL+"/api/charts/nope", &body)
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
		gt.S(t, body["error"]).Contains("unknown chart")
	})

	t.Run("invalid toggle", func(t *testing.T) {
		resp := getJSON(t, ts.URL+"/api/charts/majors?percentages=maybe", nil)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})
}

func TestServer_SourceFailure(t *testing.T) {
	source := &mocks.DataSourceMock{
		FetchFunc: func(ctx context.Context) (*model.Dataset, error) {
			return nil, model.ErrSourceFailure
		},
	}
	ts := newTestServer(t, usecase.NewDashboard(source, model.DefaultChartConfig()))

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/charts/versions", &body)
	gt.Equal(t, resp.StatusCode, http.StatusBadGateway)
	gt.Equal(t, body["error"], http.StatusText(http.StatusBadGateway))
}

func TestServer_SVG(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	for _, id := range types.AllChartIDs() {
		t.Run(id.String(), func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/charts/" + id.String() + ".svg")
			gt.NoError(t, err).Required()
			defer resp.Body.Close()

			gt.Equal(t, resp.StatusCode, http.StatusOK)
			gt.Equal(t, resp.Header.Get("Content-Type"), "image/svg+xml")
		})
	}

	t.Run("trace out of range", func(t *testing.T) {
		resp := getJSON(t, ts.URL+"/charts/interpreters.svg?trace=9", nil)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	_ = getJSON(t, ts.URL+"/api/charts/versions", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	gt.NoError(t, err)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, buf.String()).Contains("tally_figures_rendered_total")
}

func TestServer_Frontend(t *testing.T) {
	ts := newTestServer(t, newStaticDashboard(t))

	resp, err := http.Get(ts.URL + "/some/client/route")
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, resp.Header.Get("Content-Type"), "text/html; charset=utf-8")
}
