package schema

import "time"

// Custom string types for type safety.
type (
	// Granularity represents the width of a period bucket.
	Granularity string

	// Category represents a KPI record source (audits, CAPAs, ...).
	Category string

	// CommitmentKind represents one of the commitment definitions.
	CommitmentKind string

	// ColumnKind represents the type of a record column.
	ColumnKind string

	// OutputMode represents the format of the output.
	OutputMode string

	// SourceFormat represents the encoding of a record file.
	SourceFormat string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string
)

// All granularities supported.
const (
	Month   Granularity = "month" // default
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// All record categories supported.
const (
	Audits     Category = "audits"
	CAPAs      Category = "capas"
	Complaints Category = "complaints"
	Training   Category = "training"
	Usage      Category = "usage"
)

// All commitment definitions supported.
const (
	AuditCommitment     CommitmentKind = "audit"
	CAPACommitment      CommitmentKind = "capa"
	CAPAEffectiveness   CommitmentKind = "capa_effectiveness"
	ComplaintCommitment CommitmentKind = "complaint"
	TrainingCommitment  CommitmentKind = "training"
)

// All column kinds supported.
const (
	TimeColumn     ColumnKind = "time"
	CategoryColumn ColumnKind = "category"
	NumberColumn   ColumnKind = "number"
	DerivedColumn  ColumnKind = "period"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All source formats supported.
const (
	CSVSource  SourceFormat = "csv" // default
	JSONSource SourceFormat = "json"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Domain constants.
const (
	// UnknownCategory is the bucket for records whose breakdown value is null.
	// A literal "Unknown" value lands in the same bucket, and a filter on
	// Unknown matches both.
	UnknownCategory = "Unknown"

	// ComplaintWindowDays is the longest a complaint may stay open and still count as on time.
	ComplaintWindowDays = 60

	// RollingWindow is the number of trailing periods in a rolling average.
	RollingWindow = 3

	// MinTrendPoints is the fewest non-missing points a trendline is fitted to.
	MinTrendPoints = 3

	// CompositeOffset is added to every weighted composite score.
	CompositeOffset = 1.0

	// EffectivenessPass is the verification outcome counted as effective.
	EffectivenessPass = "Pass"
)

// Epoch is the first day covered by the canonical period ranges.
var Epoch = time.Date(2016, time.October, 26, 0, 0, 0, 0, time.UTC)

// AllGranularities returns the granularities in ascending width.
var AllGranularities = []Granularity{Month, Quarter, Year}

// CompositeCategories lists the categories blended into the composite score.
var CompositeCategories = []Category{Audits, CAPAs, Complaints, Training}

// AllCommitmentKinds lists every commitment definition.
var AllCommitmentKinds = []CommitmentKind{
	AuditCommitment, CAPACommitment, CAPAEffectiveness, ComplaintCommitment, TrainingCommitment,
}

// ValidGranularities lists all valid granularities.
var ValidGranularities = map[Granularity]struct{}{
	Month:   {},
	Quarter: {},
	Year:    {},
}

// ValidCategories lists all valid record categories.
var ValidCategories = map[Category]struct{}{
	Audits:     {},
	CAPAs:      {},
	Complaints: {},
	Training:   {},
	Usage:      {},
}

// ValidCommitmentKinds lists all valid commitment definitions.
var ValidCommitmentKinds = map[CommitmentKind]struct{}{
	AuditCommitment:     {},
	CAPACommitment:      {},
	CAPAEffectiveness:   {},
	ComplaintCommitment: {},
	TrainingCommitment:  {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidSourceFormats lists all valid source formats.
var ValidSourceFormats = map[SourceFormat]struct{}{
	CSVSource:  {},
	JSONSource: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// GetDefaultWeights returns the default composite weights per category.
func GetDefaultWeights() map[Category]float64 {
	return map[Category]float64{
		Audits:     0.20,
		CAPAs:      0.25,
		Complaints: 0.35,
		Training:   0.20,
	}
}

// GetDefaultGoals returns the default lower tolerance per commitment, in percent.
// Kinds without an entry have no goal.
func GetDefaultGoals() map[CommitmentKind]float64 {
	return map[CommitmentKind]float64{
		AuditCommitment:    100,
		TrainingCommitment: 80,
	}
}

// DisplayName returns the human name of a category as used in messages.
func (c Category) DisplayName() string {
	switch c {
	case Audits:
		return "Audits"
	case CAPAs:
		return "CAPAs"
	case Complaints:
		return "Complaints"
	case Training:
		return "Training"
	case Usage:
		return "Usage"
	default:
		return string(c)
	}
}

// Title returns the capitalized granularity name (Month, Quarter, Year).
func (g Granularity) Title() string {
	switch g {
	case Month:
		return "Month"
	case Quarter:
		return "Quarter"
	case Year:
		return "Year"
	default:
		return string(g)
	}
}
