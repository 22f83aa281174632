package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/source"
	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/mock"
)

var errSourceDown = errors.New("source down")

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func month(y int, m time.Month) schema.Period {
	return schema.PeriodAt(utc(y, m, 1), schema.Month)
}

func recordSet(category schema.Category, records ...schema.Record) schema.RecordSet {
	return schema.RecordSet{Category: category, Columns: schema.SourceColumns[category], Records: records}
}

// auditRecords plans 2 audits in January 2025 with 1 completed on time, and 5 in
// February with 3 completed on time. Completed audits carry an Internal/External label
// except one February audit.
func auditRecords() schema.RecordSet {
	var records []schema.Record
	for k := range 2 {
		r := schema.Record{Times: map[string]time.Time{schema.ColPlannedStart: utc(2025, time.January, 5)}}
		if k == 0 {
			r.Times[schema.ColAuditEnd] = utc(2025, time.January, 20)
			r.Labels = map[string]string{schema.ColInternalExternal: "Internal"}
		}
		records = append(records, r)
	}
	febLabels := []string{"Internal", "External", ""}
	for k := range 5 {
		r := schema.Record{Times: map[string]time.Time{schema.ColPlannedStart: utc(2025, time.February, 3)}}
		if k < 3 {
			r.Times[schema.ColAuditEnd] = utc(2025, time.February, 10)
			if febLabels[k] != "" {
				r.Labels = map[string]string{schema.ColInternalExternal: febLabels[k]}
			}
		}
		records = append(records, r)
	}
	return recordSet(schema.Audits, records...)
}

// trainingRecords has 80% of January and 90% of February training completed by the due date.
func trainingRecords() schema.RecordSet {
	var records []schema.Record
	for k := range 5 {
		times := map[string]time.Time{schema.ColDueDate: utc(2025, time.January, 20), schema.ColCompleted: utc(2025, time.January, 15)}
		if k == 4 {
			times[schema.ColCompleted] = utc(2025, time.January, 25)
		}
		records = append(records, schema.Record{Times: times})
	}
	for k := range 10 {
		times := map[string]time.Time{schema.ColDueDate: utc(2025, time.February, 20)}
		if k < 9 {
			times[schema.ColCompleted] = utc(2025, time.February, 10)
		}
		records = append(records, schema.Record{Times: times})
	}
	return recordSet(schema.Training, records...)
}

// testConfig covers January to March 2025 by month, with March as the current period.
func testConfig() *contract.Config {
	return &contract.Config{
		Granularity:     schema.Month,
		Epoch:           utc(2025, time.January, 1),
		AsOf:            utc(2025, time.March, 15),
		Weights:         map[schema.Category]float64{schema.Audits: 0.6, schema.Training: 0.4},
		CompositeOffset: schema.CompositeOffset,
		Goals:           schema.GetDefaultGoals(),
		Workers:         2,
		Precision:       1,
	}
}

// newTestLoader serves audits and training and fails every other category.
func newTestLoader() *source.MockSourceLoader {
	loader := &source.MockSourceLoader{}
	loader.On("Location").Return("memory").Maybe()
	loader.On("Fingerprint", mock.Anything, mock.Anything).Return("", nil).Maybe()
	loader.On("Load", mock.Anything, schema.Audits).Return(auditRecords(), nil).Maybe()
	loader.On("Load", mock.Anything, schema.Training).Return(trainingRecords(), nil).Maybe()
	for _, c := range []schema.Category{schema.CAPAs, schema.Complaints, schema.Usage} {
		loader.On("Load", mock.Anything, c).Return(schema.RecordSet{}, errSourceDown).Maybe()
	}
	return loader
}

func quietContext(t *testing.T) context.Context {
	t.Helper()
	return WithSuppressHeader(context.Background())
}
