package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ChartID identifies a chart on the dashboard
type ChartID string

const (
	ChartMajors       ChartID = "majors"
	ChartMajorsByWeek ChartID = "majors-by-week"
	ChartVersions     ChartID = "versions"
	ChartInterpreters ChartID = "interpreters"
)

// AllChartIDs returns chart IDs in the order they appear on the page
func AllChartIDs() []ChartID {
	return []ChartID{
		ChartMajors,
		ChartMajorsByWeek,
		ChartVersions,
		ChartInterpreters,
	}
}

// String returns the string representation
func (id ChartID) String() string {
	return string(id)
}

// Validate checks that the chart ID is known
func (id ChartID) Validate() error {
	for _, known := range AllChartIDs() {
		if id == known {
			return nil
		}
	}
	return goerr.New("unknown chart", goerr.V("chart", id))
}

// CategoryLabel is the category_label column of a download row
type CategoryLabel string

// LabelCombined marks rows keyed by interpreter and package major together
const LabelCombined CategoryLabel = "combined"

// String returns the string representation
func (l CategoryLabel) String() string {
	return string(l)
}

// MajorLabel returns the label of per-major rows for a package
func MajorLabel(pkg string) CategoryLabel {
	return CategoryLabel(pkg + "_major")
}

// VersionLabel returns the label of per-version rows for a package
func VersionLabel(pkg string) CategoryLabel {
	return CategoryLabel(pkg + "_version")
}

// SourceName names a data source implementation
type SourceName string

const (
	SourceStatic   SourceName = "static"
	SourceBigQuery SourceName = "bigquery"
)

// String returns the string representation
func (n SourceName) String() string {
	return string(n)
}

// JobID identifies a warehouse query job
type JobID string

// NewJobID creates a new JobID
func NewJobID() JobID {
	return JobID("tally-" + uuid.New().String())
}

// String returns the string representation
func (id JobID) String() string {
	return string(id)
}
