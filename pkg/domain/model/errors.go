package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for domain operations
var (
	ErrChartNotFound  = goerr.New("chart not found")
	ErrInvalidRecord  = goerr.New("invalid download record")
	ErrSourceFailure  = goerr.New("data source failure")
	ErrInvalidOptions = goerr.New("invalid chart options")
)
