package model

import "time"

// MappingSource indicates how a merchant mapping was created.
type MappingSource string

const (
	// SourceManual indicates the user entered the mapping explicitly.
	SourceManual MappingSource = "MANUAL"
	// SourceConfirmed indicates the user confirmed a fuzzy match.
	SourceConfirmed MappingSource = "CONFIRMED"
	// SourceAuto indicates the mapping was created without user input.
	SourceAuto MappingSource = "AUTO"
)

// Confidence assigned to newly created mappings.
const (
	ConfirmedMappingConfidence = 0.8
	ManualMappingConfidence    = 1.0
)

// MerchantMapping maps a raw merchant string to a display name and category.
type MerchantMapping struct {
	LastUpdated time.Time
	RawName     string
	DisplayName string
	Source      MappingSource
	ID          int
	CategoryID  int
	Confidence  float64
	UsageCount  int
}
