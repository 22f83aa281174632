package core

import (
	"fmt"

	"github.com/huangsam/kpiscore/schema"
)

// defaultCountColumns is the timestamp column counted per category when --column is unset.
var defaultCountColumns = map[schema.Category]string{
	schema.Audits:     schema.ColAuditEnd,
	schema.CAPAs:      schema.ColSubmitted,
	schema.Complaints: schema.ColComplaintCreated,
	schema.Training:   schema.ColDueDate,
	schema.Usage:      schema.ColUsageDate,
}

// openPeriodActivity describes what may still arrive for a category during the current period.
var openPeriodActivity = map[schema.Category]string{
	schema.Audits:     "audits completed",
	schema.CAPAs:      "CAPAs submitted",
	schema.Complaints: "complaints resolved",
	schema.Training:   "QMS training assigned",
	schema.Usage:      "usage recorded",
}

// lastPeriodReason explains why the current period is left out of a trendline.
func lastPeriodReason(g schema.Granularity, categories ...schema.Category) string {
	activity := make([]string, 0, len(categories))
	for _, c := range categories {
		activity = append(activity, openPeriodActivity[c])
	}
	return fmt.Sprintf("there may be more %s this %s", schema.ItemsInSeries(activity, "and/or", false), g)
}

// firstPeriodReason explains why the first tracked period of a category is left out of a trendline.
func firstPeriodReason(g schema.Granularity, c schema.Category) string {
	switch c {
	case schema.Audits:
		return fmt.Sprintf("there are no records of audits before that %s", g)
	case schema.CAPAs:
		return fmt.Sprintf("there are no records of CAPAs before that %s", g)
	case schema.Complaints:
		return fmt.Sprintf("the current complaint handling process started partway through the %s", g)
	case schema.Training:
		return fmt.Sprintf("training was not tracked in the eQMS until that %s", g)
	default:
		return fmt.Sprintf("%s tracking started partway through the %s", c, g)
	}
}
