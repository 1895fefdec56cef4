package repository_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/repository"
)

func TestBuildQuery(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		sql, err := repository.BuildQuery("marshmallow-dashboard.results.downloads", 30)
		gt.NoError(t, err).Required()
		gt.S(t, sql).Contains("FROM `marshmallow-dashboard.results.downloads*`")
		gt.S(t, sql).Contains("INTERVAL @days DAY")
		gt.S(t, sql).Contains("FORMAT_DATE('%Y%m%d', CURRENT_DATE())")
	})

	t.Run("invalid table", func(t *testing.T) {
		_, err := repository.BuildQuery("downloads; DROP TABLE x", 30)
		gt.Error(t, err)
	})

	t.Run("table without dataset", func(t *testing.T) {
		_, err := repository.BuildQuery("downloads", 30)
		gt.Error(t, err)
	})

	t.Run("non-positive lookback", func(t *testing.T) {
		_, err := repository.BuildQuery("marshmallow-dashboard.results.downloads", 0)
		gt.Error(t, err)
	})
}

func TestDownloadFromRow(t *testing.T) {
	want := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		date bigquery.Value
		n    bigquery.Value
		want int64
	}{
		{name: "civil date", date: civil.Date{Year: 2019, Month: time.July, Day: 1}, n: int64(42), want: 42},
		{name: "timestamp", date: time.Date(2019, 7, 1, 13, 0, 0, 0, time.UTC), n: float64(42), want: 42},
		{name: "string date", date: "2019-07-01", n: nil, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := repository.DownloadFromRow(map[string]bigquery.Value{
				"date":           tc.date,
				"category_label": "marshmallow_major",
				"category_value": "3-no_linux",
				"downloads":      tc.n,
			})
			gt.NoError(t, err).Required()
			gt.Equal(t, record.Date, want)
			gt.Equal(t, record.Label, types.MajorLabel("marshmallow"))
			gt.Equal(t, record.Value, "3-no_linux")
			gt.Equal(t, record.Downloads, tc.want)
		})
	}

	t.Run("unsupported date", func(t *testing.T) {
		_, err := repository.DownloadFromRow(map[string]bigquery.Value{
			"date":           int64(20190701),
			"category_label": "combined",
			"category_value": "py3.7-marshmallow3",
			"downloads":      int64(1),
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrInvalidRecord))
	})

	t.Run("missing label", func(t *testing.T) {
		_, err := repository.DownloadFromRow(map[string]bigquery.Value{
			"date":           "2019-07-01",
			"category_value": "py3.7-marshmallow3",
			"downloads":      int64(1),
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrInvalidRecord))
	})
}

func TestNewBigQuery_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := repository.NewBigQuery(ctx, "", "marshmallow-dashboard.results.downloads", 30)
	gt.Error(t, err)

	_, err = repository.NewBigQuery(ctx, "marshmallow-dashboard", "bad table", 30)
	gt.Error(t, err)
}

// TestBigQuery_Fetch runs against a real project. Set TEST_BIGQUERY_PROJECT
// and TEST_BIGQUERY_TABLE along with application default credentials.
func TestBigQuery_Fetch(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	table := os.Getenv("TEST_BIGQUERY_TABLE")
	if projectID == "" || table == "" {
		t.Skip("TEST_BIGQUERY_PROJECT and TEST_BIGQUERY_TABLE are not set")
	}

	days := 7
	if v := os.Getenv("TEST_BIGQUERY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		gt.NoError(t, err).Required()
		days = n
	}

	ctx := context.Background()
	source, err := repository.NewBigQuery(ctx, projectID, table, days)
	gt.NoError(t, err).Required()
	defer source.Close()

	ds, err := source.Fetch(ctx)
	gt.NoError(t, err).Required()
	gt.Equal(t, ds.Source, types.SourceBigQuery)
	for _, r := range ds.Records {
		gt.NoError(t, r.Validate())
	}
}
