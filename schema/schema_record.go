package schema

import (
	"errors"
	"fmt"
	"time"
)

// Contract violations. These indicate a programming or wiring error, not bad data.
var (
	ErrMissingColumn      = errors.New("missing column")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownCommitment  = errors.New("unknown commitment")
	ErrInvalidWindow      = errors.New("invalid display window")
)

// Column names shared by the record sources.
const (
	ColPlannedStart     = "Planned Start Date"
	ColAuditStart       = "Start Date"
	ColAuditEnd         = "End Date"
	ColInternalExternal = "Internal/External"
	ColAuditType        = "Audit Type"
	ColAuditingOrg      = "Auditing Organization"

	ColCAPACreated       = "Date Created"
	ColDueDate           = "Due Date"
	ColSubmitted         = "Date of Submission"
	ColFinalApproval     = "Date of Final Approval"
	ColEffectiveness     = "Effectiveness Verification Status"
	ColCAPAStatus        = "Status"
	ColCAPAPriority      = "Priority"
	ColCAPAType          = "Type"
	ColCAPAProduct       = "Product"
	ColCAPADisposition   = "Disposition"
	ColCAPAProblemType   = "Problem Type"
	ColComplaintCreated  = "Complaint Created Date"
	ColComplaintReceived = "Complaint Received Date"
	ColInvestigationDone = "Investigation Completed Date"
	ColCompleted         = "Completed Date"
	ColComplaintStatus   = "Complaint Status"
	ColDeviceType        = "Device Type"

	ColTrainingUser = "User"

	ColUsageDate = "Usage Date"
	ColDevice    = "Device"
	ColAccount   = "Account"
	ColRuns      = "Number Of Runs"
)

// SourceColumns declares the expected columns of every record source.
var SourceColumns = map[Category]map[string]ColumnKind{
	Audits: {
		ColPlannedStart:     TimeColumn,
		ColAuditStart:       TimeColumn,
		ColAuditEnd:         TimeColumn,
		ColInternalExternal: CategoryColumn,
		ColAuditType:        CategoryColumn,
		ColAuditingOrg:      CategoryColumn,
	},
	CAPAs: {
		ColCAPACreated:     TimeColumn,
		ColDueDate:         TimeColumn,
		ColSubmitted:       TimeColumn,
		ColFinalApproval:   TimeColumn,
		ColEffectiveness:   CategoryColumn,
		ColCAPAStatus:      CategoryColumn,
		ColCAPAPriority:    CategoryColumn,
		ColCAPAType:        CategoryColumn,
		ColCAPAProduct:     CategoryColumn,
		ColCAPADisposition: CategoryColumn,
		ColCAPAProblemType: CategoryColumn,
	},
	Complaints: {
		ColComplaintCreated:  TimeColumn,
		ColComplaintReceived: TimeColumn,
		ColInvestigationDone: TimeColumn,
		ColCompleted:         TimeColumn,
		ColComplaintStatus:   CategoryColumn,
		ColDeviceType:        CategoryColumn,
	},
	Training: {
		ColDueDate:      TimeColumn,
		ColCompleted:    TimeColumn,
		ColTrainingUser: CategoryColumn,
	},
	Usage: {
		ColUsageDate: TimeColumn,
		ColDevice:    CategoryColumn,
		ColAccount:   CategoryColumn,
		ColRuns:      NumberColumn,
	},
}

// Record is one row of tabular input. An absent key is a null value.
// Periods holds derived period labels keyed by derived column name.
type Record struct {
	Times   map[string]time.Time
	Labels  map[string]string
	Numbers map[string]float64
	Periods map[string]Period
}

// Time returns the timestamp in column col and whether it is non-null.
func (r Record) Time(col string) (time.Time, bool) {
	t, ok := r.Times[col]
	return t, ok && !t.IsZero()
}

// Label returns the categorical value in column col and whether it is non-null.
func (r Record) Label(col string) (string, bool) {
	v, ok := r.Labels[col]
	return v, ok && v != ""
}

// Number returns the numeric value in column col and whether it is non-null.
func (r Record) Number(col string) (float64, bool) {
	v, ok := r.Numbers[col]
	return v, ok
}

// Period returns the derived period in column col and whether it is non-null.
func (r Record) Period(col string) (Period, bool) {
	p, ok := r.Periods[col]
	return p, ok && !p.IsZero()
}

// RecordSet is an immutable batch of records with a declared column layout.
type RecordSet struct {
	Category Category
	Columns  map[string]ColumnKind
	Records  []Record
}

// Require returns ErrMissingColumn unless every column exists with the given kind.
func (rs RecordSet) Require(kind ColumnKind, cols ...string) error {
	for _, col := range cols {
		got, ok := rs.Columns[col]
		if !ok {
			return fmt.Errorf("%w: %q in %s records", ErrMissingColumn, col, rs.Category)
		}
		if got != kind {
			return fmt.Errorf("%w: %q in %s records is %s, not %s", ErrMissingColumn, col, rs.Category, got, kind)
		}
	}
	return nil
}

// Len returns the number of records.
func (rs RecordSet) Len() int {
	return len(rs.Records)
}
