package repository

import (
	"time"

	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/utils/metrics"
)

func observeFetch(source types.SourceName, start time.Time, records int, err error) {
	metrics.SourceFetchDuration.WithLabelValues(source.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchErrorsTotal.WithLabelValues(source.String()).Inc()
		return
	}
	metrics.SourceRecords.WithLabelValues(source.String()).Set(float64(records))
}
