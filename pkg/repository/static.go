package repository

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

//go:embed sample/downloads.csv
var sampleData []byte

// Column names shared by the static file and the warehouse result table
const (
	columnDate      = "date"
	columnLabel     = "category_label"
	columnValue     = "category_value"
	columnDownloads = "downloads"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"20060102",
}

// Static implements DataSource with rows read from a CSV file
type Static struct {
	path string
	data []byte
	now  func() time.Time
}

// NewStatic creates a static data source. With an empty path the bundled
// sample is used. The file is read and parsed once here so a broken file
// fails at startup.
func NewStatic(path string) (interfaces.DataSource, error) {
	data := sampleData
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, goerr.Wrap(err, "static data file not found", goerr.V("path", path))
			}
			return nil, goerr.Wrap(err, "failed to read static data file", goerr.V("path", path))
		}
		data = raw
	}

	if _, err := ParseCSV(bytes.NewReader(data)); err != nil {
		return nil, goerr.Wrap(err, "invalid static data", goerr.V("path", path))
	}

	return &Static{
		path: path,
		data: data,
		now:  time.Now,
	}, nil
}

// Fetch parses the held CSV content
func (s *Static) Fetch(ctx context.Context) (*model.Dataset, error) {
	start := time.Now()
	ctxlog.From(ctx).Debug("using static data", "path", s.path)

	records, err := ParseCSV(bytes.NewReader(s.data))
	observeFetch(types.SourceStatic, start, len(records), err)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse static data")
	}

	return &model.Dataset{
		Source:    types.SourceStatic,
		FetchedAt: s.now(),
		Records:   records,
	}, nil
}

// Name returns the source name
func (s *Static) Name() types.SourceName {
	return types.SourceStatic
}

// Close is a no-op for the static source
func (s *Static) Close() error {
	return nil
}

// ParseCSV parses download rows. The header must name the date,
// category_label, category_value and downloads columns in any order; other
// columns are ignored.
func ParseCSV(r io.Reader) ([]*model.Download, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, goerr.New("CSV data is empty")
		}
		return nil, goerr.Wrap(err, "failed to read CSV header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{columnDate, columnLabel, columnValue, columnDownloads} {
		if _, ok := index[col]; !ok {
			return nil, goerr.New("missing CSV column", goerr.V("column", col))
		}
	}

	var records []*model.Download
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read CSV row", goerr.V("line", line))
		}

		record, err := parseRow(row, index)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid CSV row", goerr.V("line", line))
		}
		records = append(records, record)
	}

	return records, nil
}

func parseRow(row []string, index map[string]int) (*model.Download, error) {
	date, err := parseDate(row[index[columnDate]])
	if err != nil {
		return nil, err
	}

	downloads, err := parseCount(row[index[columnDownloads]])
	if err != nil {
		return nil, err
	}

	record := &model.Download{
		Date:      date,
		Label:     types.CategoryLabel(strings.TrimSpace(row[index[columnLabel]])),
		Value:     strings.TrimSpace(row[index[columnValue]]),
		Downloads: downloads,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, goerr.Wrap(model.ErrInvalidRecord, "unrecognized date", goerr.V("date", raw))
}

// parseCount accepts integers and integral floats such as "12.0"
func parseCount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, goerr.Wrap(model.ErrInvalidRecord, "invalid download count", goerr.V("downloads", raw))
	}
	return int64(f), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
