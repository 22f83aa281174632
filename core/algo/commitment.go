package algo

import (
	"fmt"
	"math"

	"github.com/huangsam/kpiscore/core/agg"
	"github.com/huangsam/kpiscore/schema"
)

// Predicate selects records.
type Predicate func(r schema.Record) bool

// Definition describes one commitment metric: which records are eligible in a period
// and which of those count as on time.
type Definition struct {
	Kind     schema.CommitmentKind
	Category schema.Category

	// BucketCol is the timestamp column whose period buckets the denominator.
	BucketCol string

	// TimeCols and LabelCols are the columns the predicates read.
	TimeCols  []string
	LabelCols []string

	// Denominator may be nil, meaning every record with a BucketCol period.
	Denominator Predicate
	Numerator   Predicate
}

// DefinitionFor returns the commitment definition for kind at granularity g.
func DefinitionFor(kind schema.CommitmentKind, g schema.Granularity) (Definition, error) {
	if err := agg.ValidateGranularity(g); err != nil {
		return Definition{}, err
	}

	switch kind {
	case schema.AuditCommitment:
		return Definition{
			Kind:      kind,
			Category:  schema.Audits,
			BucketCol: schema.ColPlannedStart,
			TimeCols:  []string{schema.ColPlannedStart, schema.ColAuditEnd},
			Numerator: func(r schema.Record) bool {
				planned, ok := r.Time(schema.ColPlannedStart)
				if !ok {
					return false
				}
				end, ok := r.Time(schema.ColAuditEnd)
				return ok && schema.PeriodAt(end.UTC(), g) == schema.PeriodAt(planned.UTC(), g)
			},
		}, nil
	case schema.CAPACommitment:
		return Definition{
			Kind:      kind,
			Category:  schema.CAPAs,
			BucketCol: schema.ColSubmitted,
			TimeCols:  []string{schema.ColSubmitted, schema.ColDueDate},
			Numerator: onOrBefore(schema.ColSubmitted, schema.ColDueDate),
		}, nil
	case schema.CAPAEffectiveness:
		return Definition{
			Kind:      kind,
			Category:  schema.CAPAs,
			BucketCol: schema.ColSubmitted,
			TimeCols:  []string{schema.ColSubmitted},
			LabelCols: []string{schema.ColEffectiveness},
			Numerator: func(r schema.Record) bool {
				status, ok := r.Label(schema.ColEffectiveness)
				return ok && status == schema.EffectivenessPass
			},
		}, nil
	case schema.ComplaintCommitment:
		return Definition{
			Kind:      kind,
			Category:  schema.Complaints,
			BucketCol: schema.ColCompleted,
			TimeCols:  []string{schema.ColCompleted, schema.ColComplaintCreated},
			Numerator: func(r schema.Record) bool {
				days, ok := DaysOpen(r)
				return ok && days <= schema.ComplaintWindowDays
			},
		}, nil
	case schema.TrainingCommitment:
		return Definition{
			Kind:      kind,
			Category:  schema.Training,
			BucketCol: schema.ColDueDate,
			TimeCols:  []string{schema.ColDueDate, schema.ColCompleted},
			Numerator: onOrBefore(schema.ColCompleted, schema.ColDueDate),
		}, nil
	default:
		return Definition{}, fmt.Errorf("%w: %q", schema.ErrUnknownCommitment, kind)
	}
}

// onOrBefore selects records whose col is non-null and not after limitCol.
// A null limit selects nothing.
func onOrBefore(col, limitCol string) Predicate {
	return func(r schema.Record) bool {
		t, ok := r.Time(col)
		if !ok {
			return false
		}
		limit, ok := r.Time(limitCol)
		return ok && !t.After(limit)
	}
}

// DaysOpen returns the whole days between complaint creation and completion.
func DaysOpen(r schema.Record) (int, bool) {
	created, ok := r.Time(schema.ColComplaintCreated)
	if !ok {
		return 0, false
	}
	completed, ok := r.Time(schema.ColCompleted)
	if !ok {
		return 0, false
	}
	return int(math.Floor(completed.Sub(created).Hours() / 24)), true
}

// Commitment returns the per-period percentage of denominator records that also satisfy num.
// Periods come from periodCol, a derived period column. A period with no eligible
// records is NaN, never 0.
func Commitment(rs schema.RecordSet, periodCol string, rng []schema.Period, den, num Predicate) (schema.Series, error) {
	if den == nil {
		den = func(schema.Record) bool { return true }
	}
	total, err := agg.CountWhere(rs, periodCol, rng, den)
	if err != nil {
		return schema.Series{}, err
	}
	onTime, err := agg.CountWhere(rs, periodCol, rng, func(r schema.Record) bool {
		return den(r) && num(r)
	})
	if err != nil {
		return schema.Series{}, err
	}
	return Ratio(onTime, total)
}

// ComputeCommitment applies the definition of kind to a record source.
// An unavailable source yields an unavailable result, not an error.
// Missing columns and an unknown kind or granularity are errors.
func ComputeCommitment(src schema.Result[schema.RecordSet], kind schema.CommitmentKind, g schema.Granularity, rng []schema.Period) (schema.Result[schema.Series], error) {
	def, err := DefinitionFor(kind, g)
	if err != nil {
		return schema.Result[schema.Series]{}, err
	}

	return schema.MapResult(src, func(rs schema.RecordSet) (schema.Series, error) {
		if rs.Category != def.Category {
			return schema.Series{}, fmt.Errorf("%w: %s commitment needs %s records, got %q",
				schema.ErrUnknownCategory, kind, def.Category, rs.Category)
		}
		if err := rs.Require(schema.TimeColumn, def.TimeCols...); err != nil {
			return schema.Series{}, err
		}
		if err := rs.Require(schema.CategoryColumn, def.LabelCols...); err != nil {
			return schema.Series{}, err
		}

		norm, err := agg.AttachPeriodLabels(rs, []string{def.BucketCol}, []schema.Granularity{g})
		if err != nil {
			return schema.Series{}, err
		}
		s, err := Commitment(norm, schema.PeriodColumn(def.BucketCol, g), rng, def.Denominator, def.Numerator)
		if err != nil {
			return schema.Series{}, err
		}
		s.Name = string(kind)
		return s, nil
	})
}
