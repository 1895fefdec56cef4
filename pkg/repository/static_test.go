package repository_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/repository"
)

type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("network access is not allowed in static mode")
}

func TestStatic_EmbeddedSample(t *testing.T) {
	source, err := repository.NewStatic("")
	gt.NoError(t, err).Required()
	defer source.Close()

	gt.Equal(t, source.Name(), types.SourceStatic)

	ds, err := source.Fetch(context.Background())
	gt.NoError(t, err).Required()
	gt.Equal(t, ds.Source, types.SourceStatic)
	gt.True(t, ds.Len() > 0)

	labels := make(map[types.CategoryLabel]bool)
	for _, r := range ds.Records {
		labels[r.Label] = true
	}
	gt.True(t, labels[types.MajorLabel("marshmallow")])
	gt.True(t, labels[types.VersionLabel("marshmallow")])
	gt.True(t, labels[types.LabelCombined])
}

func TestStatic_NoNetwork(t *testing.T) {
	transport := &countingTransport{}
	original := http.DefaultTransport
	http.DefaultTransport = transport
	t.Cleanup(func() { http.DefaultTransport = original })

	source, err := repository.NewStatic("")
	gt.NoError(t, err).Required()

	for i := 0; i < 3; i++ {
		_, err := source.Fetch(context.Background())
		gt.NoError(t, err)
	}
	gt.NoError(t, source.Close())

	gt.Equal(t, transport.calls.Load(), int64(0))
}

func TestStatic_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloads.csv")
	content := "downloads,category_value,category_label,date,extra\n" +
		"12,3,marshmallow_major,2019-07-01,x\n" +
		"7.0,3-no_linux,marshmallow_major,2019-07-01T10:00:00Z,y\n"
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()

	source, err := repository.NewStatic(path)
	gt.NoError(t, err).Required()

	ds, err := source.Fetch(context.Background())
	gt.NoError(t, err).Required()
	gt.Equal(t, ds.Len(), 2)

	gt.Equal(t, ds.Records[0].Downloads, int64(12))
	gt.Equal(t, ds.Records[1].Downloads, int64(7))
	gt.Equal(t, ds.Records[1].Date, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC))
	gt.True(t, ds.Records[1].ExcludesLinux())
}

func TestStatic_MissingFile(t *testing.T) {
	_, err := repository.NewStatic(filepath.Join(t.TempDir(), "missing.csv"))
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("static data file not found")
}

func TestParseCSV(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
		want    int
	}{
		{
			name:  "header only",
			input: "date,category_label,category_value,downloads\n",
			want:  0,
		},
		{
			name:  "compact date",
			input: "date,category_label,category_value,downloads\n20190701,combined,py3.7-marshmallow3,5\n",
			want:  1,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: "CSV data is empty",
		},
		{
			name:    "missing column",
			input:   "date,category_label,downloads\n2019-07-01,combined,5\n",
			wantErr: "missing CSV column",
		},
		{
			name:    "bad date",
			input:   "date,category_label,category_value,downloads\n07/01/2019,combined,py3.7-marshmallow3,5\n",
			wantErr: "invalid CSV row",
		},
		{
			name:    "bad count",
			input:   "date,category_label,category_value,downloads\n2019-07-01,combined,py3.7-marshmallow3,many\n",
			wantErr: "invalid CSV row",
		},
		{
			name:    "negative count",
			input:   "date,category_label,category_value,downloads\n2019-07-01,combined,py3.7-marshmallow3,-5\n",
			wantErr: "invalid CSV row",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := repository.ParseCSV(strings.NewReader(tc.input))
			if tc.wantErr != "" {
				gt.Error(t, err)
				gt.S(t, err.Error()).Contains(tc.wantErr)
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, len(records), tc.want)
		})
	}
}

func TestParseCSV_InvalidRecordSentinel(t *testing.T) {
	_, err := repository.ParseCSV(strings.NewReader(
		"date,category_label,category_value,downloads\n2019-07-01,,3,5\n"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidRecord))
}
