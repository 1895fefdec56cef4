package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// tablePattern matches "project.dataset.table_prefix"
var tablePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.[a-zA-Z0-9_]+\.[a-zA-Z0-9_]+$`)

const queryTemplate = "SELECT date, category_label, category_value, downloads\n" +
	"FROM `%s*`\n" +
	"WHERE\n" +
	"  _TABLE_SUFFIX\n" +
	"    BETWEEN FORMAT_DATE('%%Y%%m%%d', DATE_SUB(CURRENT_DATE(), INTERVAL @days DAY))\n" +
	"    AND FORMAT_DATE('%%Y%%m%%d', CURRENT_DATE())\n"

// BigQuery implements DataSource with a query over daily result tables
type BigQuery struct {
	client       *bigquery.Client
	table        string
	lookbackDays int
}

// BuildQuery returns the query reading the last days of the daily tables
// sharing the table prefix
func BuildQuery(table string, lookbackDays int) (string, error) {
	if !tablePattern.MatchString(table) {
		return "", goerr.New("invalid table name, expected project.dataset.prefix",
			goerr.V("table", table))
	}
	if lookbackDays <= 0 {
		return "", goerr.New("lookback days must be positive",
			goerr.V("days", lookbackDays))
	}
	return fmt.Sprintf(queryTemplate, table), nil
}

// NewBigQuery creates a BigQuery data source
func NewBigQuery(ctx context.Context, projectID, table string, lookbackDays int, opts ...option.ClientOption) (interfaces.DataSource, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if _, err := BuildQuery(table, lookbackDays); err != nil {
		return nil, err
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create bigquery client",
			goerr.V("project", projectID))
	}

	ctxlog.From(ctx).Info("BigQuery data source initialized",
		"projectID", projectID,
		"table", table,
		"lookbackDays", lookbackDays,
	)

	return &BigQuery{
		client:       client,
		table:        table,
		lookbackDays: lookbackDays,
	}, nil
}

// Fetch runs the query and decodes all rows
func (b *BigQuery) Fetch(ctx context.Context) (*model.Dataset, error) {
	start := time.Now()
	records, err := b.fetch(ctx)
	observeFetch(types.SourceBigQuery, start, len(records), err)
	if err != nil {
		return nil, err
	}

	return &model.Dataset{
		Source:    types.SourceBigQuery,
		FetchedAt: time.Now(),
		Records:   records,
	}, nil
}

func (b *BigQuery) fetch(ctx context.Context) ([]*model.Download, error) {
	logger := ctxlog.From(ctx)

	sql, err := BuildQuery(b.table, b.lookbackDays)
	if err != nil {
		return nil, err
	}

	jobID := types.NewJobID()
	q := b.client.Query(sql)
	q.JobID = jobID.String()
	q.Labels = map[string]string{"app": "tally"}
	q.Parameters = []bigquery.QueryParameter{
		{Name: "days", Value: b.lookbackDays},
	}

	logger.Info("fetching data", "jobID", jobID, "table", b.table)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, wrapQueryError(err, "failed to run query", jobID)
	}

	var records []*model.Download
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapQueryError(err, "failed to read query result", jobID)
		}

		record, err := DownloadFromRow(row)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid query result row", goerr.V("jobID", jobID))
		}
		records = append(records, record)
	}

	logger.Debug("query finished", "jobID", jobID, "rows", len(records))
	return records, nil
}

// Name returns the source name
func (b *BigQuery) Name() types.SourceName {
	return types.SourceBigQuery
}

// Close closes the BigQuery client
func (b *BigQuery) Close() error {
	if err := b.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close bigquery client")
	}
	return nil
}

// DownloadFromRow converts one result row into a download record
func DownloadFromRow(row map[string]bigquery.Value) (*model.Download, error) {
	var date time.Time
	switch v := row[columnDate].(type) {
	case civil.Date:
		date = v.In(time.UTC)
	case time.Time:
		date = truncateDay(v)
	case string:
		parsed, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		date = parsed
	default:
		return nil, goerr.Wrap(model.ErrInvalidRecord, "unsupported date value",
			goerr.V("type", fmt.Sprintf("%T", v)))
	}

	label, _ := row[columnLabel].(string)
	value, _ := row[columnValue].(string)

	var downloads int64
	switch v := row[columnDownloads].(type) {
	case int64:
		downloads = v
	case float64:
		downloads = int64(v)
	case nil:
		downloads = 0
	default:
		return nil, goerr.Wrap(model.ErrInvalidRecord, "unsupported downloads value",
			goerr.V("type", fmt.Sprintf("%T", v)))
	}

	record := &model.Download{
		Date:      date,
		Label:     types.CategoryLabel(label),
		Value:     value,
		Downloads: downloads,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func wrapQueryError(err error, msg string, jobID types.JobID) error {
	cause := errors.Join(model.ErrSourceFailure, err)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return goerr.Wrap(cause, msg,
			goerr.V("jobID", jobID),
			goerr.V("code", apiErr.Code),
			goerr.V("reason", apiErr.Message),
		)
	}
	return goerr.Wrap(cause, msg, goerr.V("jobID", jobID))
}
