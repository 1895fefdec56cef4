package types_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

func TestChartID_Validate(t *testing.T) {
	for _, id := range types.AllChartIDs() {
		gt.NoError(t, id.Validate())
	}
	gt.Error(t, types.ChartID("pie").Validate())
	gt.Error(t, types.ChartID("").Validate())
}

func TestLabels(t *testing.T) {
	gt.Equal(t, types.MajorLabel("marshmallow").String(), "marshmallow_major")
	gt.Equal(t, types.VersionLabel("marshmallow").String(), "marshmallow_version")
}

func TestNewJobID(t *testing.T) {
	a := types.NewJobID()
	b := types.NewJobID()

	gt.True(t, strings.HasPrefix(a.String(), "tally-"))
	gt.NotEqual(t, a, b)
}
