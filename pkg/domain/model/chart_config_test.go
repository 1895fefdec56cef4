package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/domain/model"
)

func TestChartConfig_Validate(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		gt.NoError(t, model.DefaultChartConfig().Validate())
	})

	testCases := []struct {
		name   string
		modify func(c *model.ChartConfig)
	}{
		{
			name:   "missing package",
			modify: func(c *model.ChartConfig) { c.Package = "" },
		},
		{
			name:   "missing period",
			modify: func(c *model.ChartConfig) { c.Period = "" },
		},
		{
			name:   "no majors",
			modify: func(c *model.ChartConfig) { c.Majors = nil },
		},
		{
			name: "duplicate major",
			modify: func(c *model.ChartConfig) {
				c.Majors = append(c.Majors, c.Majors[0])
			},
		},
		{
			name:   "invalid major color",
			modify: func(c *model.ChartConfig) { c.Majors[0].Color = "red" },
		},
		{
			name:   "invalid interpreter color",
			modify: func(c *model.ChartConfig) { c.InterpreterColors["3.7"] = "#12345" },
		},
		{
			name:   "negative top versions",
			modify: func(c *model.ChartConfig) { c.TopVersions = -1 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := model.DefaultChartConfig()
			tc.modify(cfg)
			gt.Error(t, cfg.Validate())
		})
	}

	t.Run("single major is valid", func(t *testing.T) {
		cfg := model.DefaultChartConfig()
		cfg.Majors = cfg.Majors[:1]
		gt.NoError(t, cfg.Validate())
	})
}

func TestChartConfig_VersionColor(t *testing.T) {
	cfg := model.DefaultChartConfig()

	gt.Equal(t, cfg.VersionColor("2.19.5"), "#4f446e")
	gt.Equal(t, cfg.VersionColor("3.0.0rc9"), "#d15858")
	// unknown majors fall back to the last configured major
	gt.Equal(t, cfg.VersionColor("4.0.0"), "#d15858")
}

func TestChartConfig_InterpreterColor(t *testing.T) {
	cfg := model.DefaultChartConfig()
	ma2 := cfg.FindMajor("2")
	ma3 := cfg.FindMajor("3")
	gt.V(t, ma2).NotNil()
	gt.V(t, ma3).NotNil()

	gt.Equal(t, cfg.InterpreterColor(*ma2, "2.7"), "#316998")
	gt.Equal(t, cfg.InterpreterColor(*ma2, "3.10"), "#6991b4")
	gt.Equal(t, cfg.InterpreterColor(*ma3, "3.10"), "#fff3bc")

	gt.V(t, cfg.FindMajor("1")).Nil()
}
