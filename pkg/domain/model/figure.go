package model

import (
	"fmt"

	"github.com/secmon-lab/tally/pkg/domain/types"
)

// TraceKind is the kind of a chart trace
type TraceKind string

const (
	TraceBar TraceKind = "bar"
	TracePie TraceKind = "pie"
)

// BarMode controls how multiple bar traces share an axis
type BarMode string

const (
	BarModeGroup BarMode = "group"
	BarModeStack BarMode = "stack"
)

// Tick formats understood by the frontend (d3-format)
const (
	TickInteger       = ",d"
	TickPercent       = "%"
	TickPercentDetail = ".1%"
)

// Trace is one data series of a figure. Labels and Values are parallel.
type Trace struct {
	Kind       TraceKind `json:"kind"`
	Name       string    `json:"name,omitempty"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
	Color      string    `json:"color,omitempty"`
	Colors     []string  `json:"colors,omitempty"`
	Horizontal bool      `json:"horizontal,omitempty"`
	Hole       float64   `json:"hole,omitempty"`
	Column     int       `json:"column,omitempty"`
}

// Len returns the number of points in the trace
func (t *Trace) Len() int {
	return len(t.Values)
}

// Axis describes one axis of a figure
type Axis struct {
	Title      string `json:"title,omitempty"`
	TickFormat string `json:"tick_format,omitempty"`
}

// Annotation is free text placed on the figure in paper coordinates
type Annotation struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size int     `json:"size,omitempty"`
}

// Margin is the figure margin in pixels
type Margin struct {
	Top    int `json:"t,omitempty"`
	Bottom int `json:"b,omitempty"`
}

// Layout holds presentation settings shared by all traces
type Layout struct {
	BarMode     BarMode      `json:"bar_mode,omitempty"`
	XAxis       Axis         `json:"x_axis"`
	YAxis       Axis         `json:"y_axis"`
	Font        Font         `json:"font"`
	Margin      Margin       `json:"margin"`
	Height      int          `json:"height,omitempty"`
	Columns     int          `json:"columns,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Figure is a rendered chart ready to be drawn by a client
type Figure struct {
	ID     types.ChartID `json:"id"`
	Title  string        `json:"title"`
	Traces []Trace       `json:"traces"`
	Layout Layout        `json:"layout"`
}

// ChartOptions are the user toggles of a chart
type ChartOptions struct {
	Percentages  bool `json:"percentages"`
	IncludeLinux bool `json:"include_linux"`
}

// DefaultChartOptions returns the toggles as they are on first page load
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Percentages: true}
}

// CacheKey returns the memoization key of a figure with these options
func (o ChartOptions) CacheKey(id types.ChartID) string {
	return fmt.Sprintf("figure:%s:p=%t:l=%t", id, o.Percentages, o.IncludeLinux)
}

// ChartSpec describes a chart section on the page
type ChartSpec struct {
	ID              types.ChartID `json:"id"`
	Title           string        `json:"title"`
	Height          int           `json:"height"`
	HasPercentages  bool          `json:"has_percentages"`
	HasIncludeLinux bool          `json:"has_include_linux"`
}

// Page is the dashboard page model
type Page struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Source      string      `json:"source"`
	Records     int         `json:"records"`
	Versions    int         `json:"versions"`
	Charts      []ChartSpec `json:"charts"`
}
