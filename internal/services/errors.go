package services

import (
	"enrolcli/internal/analytics"
	"enrolcli/internal/dataset"
)

// Service errors surfaced to the transport layer. The dataset and
// analytics packages own the sentinels; these aliases keep handlers
// decoupled from the pipeline packages.
var (
	// Load errors
	ErrNoDataFound = dataset.ErrNoDataFound

	// Selection errors
	ErrSelectionRequired  = dataset.ErrSelectionRequired
	ErrNoOptionsAvailable = dataset.ErrNoOptionsAvailable
	ErrEmptySelection     = dataset.ErrEmptySelection

	// Aggregation errors
	ErrMissingColumns = analytics.ErrMissingColumns
)
