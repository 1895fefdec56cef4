package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Font is the font used by all figures
type Font struct {
	Family string `yaml:"family" json:"family"`
	Color  string `yaml:"color" json:"color"`
}

// Major is one package major version compared on the dashboard
type Major struct {
	ID    string `yaml:"id"`    // Category value, e.g. "3"
	Label string `yaml:"label"` // Display name, e.g. "ma3"
	Color string `yaml:"color"`
	// Colour for interpreter versions missing from the interpreter palette
	FallbackColor string `yaml:"fallback_color"`
}

// Validate validates the major
func (m *Major) Validate() error {
	if m.ID == "" {
		return goerr.New("major ID is required")
	}
	if m.Label == "" {
		return goerr.New("major label is required", goerr.V("id", m.ID))
	}
	if !hexColorPattern.MatchString(m.Color) {
		return goerr.New("invalid major color", goerr.V("id", m.ID), goerr.V("color", m.Color))
	}
	if m.FallbackColor != "" && !hexColorPattern.MatchString(m.FallbackColor) {
		return goerr.New("invalid fallback color", goerr.V("id", m.ID), goerr.V("color", m.FallbackColor))
	}
	return nil
}

// ChartConfig configures what the dashboard shows and how
type ChartConfig struct {
	Package           string            `yaml:"package"`
	Title             string            `yaml:"title"`
	Description       string            `yaml:"description"`
	Period            string            `yaml:"period"`
	Majors            []Major           `yaml:"majors"`
	InterpreterColors map[string]string `yaml:"interpreter_colors"`
	Font              Font              `yaml:"font"`
	TopVersions       int               `yaml:"top_versions"`
}

// DefaultChartConfig returns the configuration for the marshmallow dashboard
func DefaultChartConfig() *ChartConfig {
	return &ChartConfig{
		Package:     "marshmallow",
		Title:       "marshmallow dashboard",
		Period:      "past 30 days",
		Description: "Data were collected from PyPI's BigQuery dataset. Excludes downloads from mirrors and Linux platforms (to correct for CI downloads).",
		Majors: []Major{
			{ID: "2", Label: "ma2", Color: "#4f446e", FallbackColor: "#6991b4"},
			{ID: "3", Label: "ma3", Color: "#d15858", FallbackColor: "#fff3bc"},
		},
		InterpreterColors: map[string]string{
			"2.6": "#4376a1",
			"2.7": "#316998",
			"3.0": "#fff1af",
			"3.1": "#fff1af",
			"3.2": "#fff1af",
			"3.3": "#fff1af",
			"3.4": "#ffea87",
			"3.5": "#ffe66d",
			"3.6": "#e8d264",
			"3.7": "#d1bd5a",
			"3.8": "#baa850",
			"3.9": "#a39346",
		},
		Font: Font{
			Family: "monaco, consolas, menlo, monospace",
			Color:  "#363636",
		},
		TopVersions: 10,
	}
}

// Validate validates the chart configuration
func (c *ChartConfig) Validate() error {
	if c.Package == "" {
		return goerr.New("package name is required")
	}
	if c.Period == "" {
		return goerr.New("period is required")
	}
	if len(c.Majors) == 0 {
		return goerr.New("at least one major is required")
	}

	ids := make(map[string]bool)
	for i, m := range c.Majors {
		if err := m.Validate(); err != nil {
			return goerr.Wrap(err, "invalid major at index", goerr.V("index", i))
		}
		if ids[m.ID] {
			return goerr.New("duplicate major ID", goerr.V("id", m.ID))
		}
		ids[m.ID] = true
	}

	for version, color := range c.InterpreterColors {
		if !hexColorPattern.MatchString(color) {
			return goerr.New("invalid interpreter color",
				goerr.V("version", version),
				goerr.V("color", color))
		}
	}

	if c.TopVersions < 0 {
		return goerr.New("top versions must not be negative", goerr.V("top_versions", c.TopVersions))
	}

	return nil
}

// FindMajor finds a major by its ID
func (c *ChartConfig) FindMajor(id string) *Major {
	for _, m := range c.Majors {
		if m.ID == id {
			result := m
			return &result
		}
	}
	return nil
}

// VersionColor returns the colour of a package version by its major.
// Versions of unknown majors take the colour of the last configured major.
func (c *ChartConfig) VersionColor(version string) string {
	major, _, _ := strings.Cut(version, ".")
	if m := c.FindMajor(major); m != nil {
		return m.Color
	}
	if len(c.Majors) == 0 {
		return ""
	}
	return c.Majors[len(c.Majors)-1].Color
}

// InterpreterColor returns the colour of an interpreter version within a major
func (c *ChartConfig) InterpreterColor(major Major, version string) string {
	if color, ok := c.InterpreterColors[version]; ok {
		return color
	}
	if major.FallbackColor != "" {
		return major.FallbackColor
	}
	return major.Color
}
