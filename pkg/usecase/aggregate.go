package usecase

import (
	"sort"
	"time"

	"github.com/secmon-lab/tally/pkg/domain/model"
)

const day = 24 * time.Hour

// Bucket is the download total of one group
type Bucket struct {
	Key       string
	Downloads int64
}

// GroupSum sums downloads per key. Buckets are sorted by key.
func GroupSum(records []*model.Download, key func(*model.Download) string) []Bucket {
	totals := make(map[string]int64)
	for _, r := range records {
		totals[key(r)] += r.Downloads
	}

	buckets := make([]Bucket, 0, len(totals))
	for k, v := range totals {
		buckets = append(buckets, Bucket{Key: k, Downloads: v})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

// TopBuckets returns the n largest buckets, largest first. Ties keep key order.
func TopBuckets(buckets []Bucket, n int) []Bucket {
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Downloads > sorted[j].Downloads
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// WeekPoint is the download total of one week
type WeekPoint struct {
	Week      time.Time
	Downloads int64
}

// WeekOf returns the label of the week a date is counted in: the date is
// moved back seven days and assigned to the week ending on the next Monday
// (the date itself when it is a Monday).
func WeekOf(date time.Time) time.Time {
	shifted := date.Add(-7 * day)
	offset := (int(time.Monday) - int(shifted.Weekday()) + 7) % 7
	y, m, d := shifted.Add(time.Duration(offset) * day).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DownloadsByWeek sums downloads per week in chronological order. Weeks
// without downloads between the first and last week are reported as zero.
// The last week is still in progress and is excluded.
func DownloadsByWeek(records []*model.Download) []WeekPoint {
	if len(records) == 0 {
		return nil
	}

	totals := make(map[time.Time]int64)
	var first, last time.Time
	for _, r := range records {
		week := WeekOf(r.Date)
		totals[week] += r.Downloads
		if first.IsZero() || week.Before(first) {
			first = week
		}
		if week.After(last) {
			last = week
		}
	}

	var points []WeekPoint
	for week := first; !week.After(last); week = week.Add(7 * day) {
		points = append(points, WeekPoint{Week: week, Downloads: totals[week]})
	}

	return points[:len(points)-1]
}

// Shares divides each value by the sum of all values. A zero sum yields zeros.
func Shares(values []int64) []float64 {
	var total int64
	for _, v := range values {
		total += v
	}

	result := make([]float64, len(values))
	if total == 0 {
		return result
	}
	for i, v := range values {
		result[i] = float64(v) / float64(total)
	}
	return result
}
