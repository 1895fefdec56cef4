package render

// BarValues exposes the bar layout for tests
var BarValues = barValues
