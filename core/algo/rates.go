package algo

import (
	"math"

	"github.com/huangsam/kpiscore/core/agg"
	"github.com/huangsam/kpiscore/schema"
)

// UsageRates holds complaints opened per unit of product usage.
type UsageRates struct {
	PerHundredRuns schema.Series
	PerAccount     schema.Series

	// ValidFrom is the first period with recorded usage. Both series are NaN before it.
	ValidFrom schema.Period
}

// ComplaintUsageRates returns complaints opened per 100 runs and per active account.
// Complaints are bucketed by creation date and usage by usage date.
// Periods without usage are NaN.
func ComplaintUsageRates(complaints, usage schema.RecordSet, g schema.Granularity, rng []schema.Period) (UsageRates, error) {
	complaintCol := schema.PeriodColumn(schema.ColComplaintCreated, g)
	usageCol := schema.PeriodColumn(schema.ColUsageDate, g)

	normComplaints, err := agg.AttachPeriodLabels(complaints, []string{schema.ColComplaintCreated}, []schema.Granularity{g})
	if err != nil {
		return UsageRates{}, err
	}
	normUsage, err := agg.AttachPeriodLabels(usage, []string{schema.ColUsageDate}, []schema.Granularity{g})
	if err != nil {
		return UsageRates{}, err
	}

	opened, err := agg.CountByPeriod(normComplaints, complaintCol, rng)
	if err != nil {
		return UsageRates{}, err
	}
	runs, err := agg.SumByPeriod(normUsage, usageCol, schema.ColRuns, rng)
	if err != nil {
		return UsageRates{}, err
	}
	accounts, err := agg.DistinctByPeriod(normUsage, usageCol, schema.ColAccount, rng)
	if err != nil {
		return UsageRates{}, err
	}

	perRuns, err := RatePer(opened, runs, 100)
	if err != nil {
		return UsageRates{}, err
	}
	perAccount, err := RatePer(opened, accounts, 1)
	if err != nil {
		return UsageRates{}, err
	}
	perRuns.Name = "complaints_per_100_runs"
	perAccount.Name = "complaints_per_account"

	out := UsageRates{PerHundredRuns: perRuns, PerAccount: perAccount}
	for i, v := range runs.Values {
		if v > 0 && !math.IsNaN(v) {
			out.ValidFrom = runs.Start.Add(i)
			break
		}
	}
	if !out.ValidFrom.IsZero() {
		out.PerHundredRuns = MaskBefore(out.PerHundredRuns, out.ValidFrom)
		out.PerAccount = MaskBefore(out.PerAccount, out.ValidFrom)
	}
	return out, nil
}
