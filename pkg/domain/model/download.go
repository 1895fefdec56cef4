package model

import (
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

// NoLinuxSuffix marks category values that exclude downloads from Linux (mostly CI)
const NoLinuxSuffix = "-no_linux"

// Download is one row of download statistics
type Download struct {
	Date      time.Time           `json:"date"`
	Label     types.CategoryLabel `json:"category_label"`
	Value     string              `json:"category_value"`
	Downloads int64               `json:"downloads"`
}

// Validate validates the download record
func (d *Download) Validate() error {
	if d.Date.IsZero() {
		return goerr.Wrap(ErrInvalidRecord, "date is required")
	}
	if d.Label == "" {
		return goerr.Wrap(ErrInvalidRecord, "category label is required")
	}
	if d.Value == "" {
		return goerr.Wrap(ErrInvalidRecord, "category value is required",
			goerr.V("label", d.Label))
	}
	if d.Downloads < 0 {
		return goerr.Wrap(ErrInvalidRecord, "downloads must not be negative",
			goerr.V("downloads", d.Downloads))
	}
	return nil
}

// ExcludesLinux reports whether the row counts only non-Linux downloads
func (d *Download) ExcludesLinux() bool {
	return strings.HasSuffix(d.Value, NoLinuxSuffix)
}

// Dimension returns the category value without the Linux marker
func (d *Download) Dimension() string {
	return strings.TrimSuffix(d.Value, NoLinuxSuffix)
}

// InterpreterVersion returns the interpreter version of a combined row.
// "py3.7-marshmallow3" yields "3.7".
func (d *Download) InterpreterVersion() string {
	if d.Label != types.LabelCombined {
		return ""
	}
	head, _, _ := strings.Cut(d.Dimension(), "-")
	return strings.TrimLeft(head, "py")
}

// PackageMajor returns the package major version the row belongs to
func (d *Download) PackageMajor(pkg string) string {
	dim := d.Dimension()
	switch d.Label {
	case types.MajorLabel(pkg):
		return dim
	case types.VersionLabel(pkg):
		major, _, _ := strings.Cut(dim, ".")
		return major
	case types.LabelCombined:
		for _, part := range strings.Split(dim, "-") {
			if strings.HasPrefix(part, pkg) {
				return strings.TrimPrefix(part, pkg)
			}
		}
	}
	return ""
}

// Dataset is a set of download rows fetched from one source
type Dataset struct {
	Source    types.SourceName `json:"source"`
	FetchedAt time.Time        `json:"fetched_at"`
	Records   []*Download      `json:"records"`
}

// Len returns the number of records
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Records)
}

// Select returns records with the given label, honouring the Linux toggle.
// With includeLinux only rows without the marker are returned, otherwise only
// rows carrying it. The two sets never overlap.
func (ds *Dataset) Select(label types.CategoryLabel, includeLinux bool) []*Download {
	if ds == nil {
		return nil
	}

	var result []*Download
	for _, r := range ds.Records {
		if r.Label != label {
			continue
		}
		if r.ExcludesLinux() == includeLinux {
			continue
		}
		result = append(result, r)
	}
	return result
}

// SumDownloads sums download counts
func SumDownloads(records []*Download) int64 {
	var total int64
	for _, r := range records {
		total += r.Downloads
	}
	return total
}

// DistinctDimensions returns sorted distinct dimension values
func DistinctDimensions(records []*Download) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Dimension()] = struct{}{}
	}

	result := make([]string, 0, len(seen))
	for dim := range seen {
		result = append(result, dim)
	}
	sort.Strings(result)
	return result
}
