package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/kpiscore/core/agg"
	"github.com/huangsam/kpiscore/core/algo"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/outwriter"
	"github.com/huangsam/kpiscore/schema"
)

// GetCommitmentResults computes the commitment series of cfg.Kind, or of every kind
// when none is set, over the display window. Unavailable sources yield reports with
// Available false rather than an error.
func GetCommitmentResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) ([]schema.CommitmentReport, error) {
	kinds := schema.AllCommitmentKinds
	if cfg.Kind != "" {
		kinds = []schema.CommitmentKind{cfg.Kind}
	}

	if !shouldSuppressHeader(ctx) {
		outwriter.LogQueryHeader(cfg, "Commitment")
	}
	return commitmentReports(ctx, cfg, loader, mgr, kinds)
}

// commitmentReports loads the sources of kinds once and computes a report per kind.
func commitmentReports(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager, kinds []schema.CommitmentKind) ([]schema.CommitmentReport, error) {
	w, err := resolveWindow(cfg.Query())
	if err != nil {
		return nil, err
	}

	categories := make([]schema.Category, 0, len(kinds))
	for _, kind := range kinds {
		def, err := algo.DefinitionFor(kind, cfg.Granularity)
		if err != nil {
			return nil, err
		}
		categories = append(categories, def.Category)
	}
	sources, err := LoadSources(ctx, cfg, loader, mgr, categories...)
	if err != nil {
		return nil, err
	}

	reports := make([]schema.CommitmentReport, 0, len(kinds))
	for _, kind := range kinds {
		report, _, err := commitmentReport(cfg, w, sources, kind)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// GetTrendResults computes one commitment series with its rolling average and trendline.
func GetTrendResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) (schema.CommitmentReport, error) {
	if cfg.Kind == "" {
		return schema.CommitmentReport{}, errors.New("a commitment kind is required for trend")
	}
	def, err := algo.DefinitionFor(cfg.Kind, cfg.Granularity)
	if err != nil {
		return schema.CommitmentReport{}, err
	}
	w, err := resolveWindow(cfg.Query())
	if err != nil {
		return schema.CommitmentReport{}, err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogQueryHeader(cfg, "Trend")
	}

	sources, err := LoadSources(ctx, cfg, loader, mgr, def.Category)
	if err != nil {
		return schema.CommitmentReport{}, err
	}
	report, full, err := commitmentReport(cfg, w, sources, cfg.Kind)
	if err != nil || !report.Available {
		return report, err
	}

	report.Rolling = w.rolling(full)
	edges := trendEdges{lastReason: lastPeriodReason(cfg.Granularity, def.Category), percent: true}
	if cfg.PartialStart {
		edges.first, _ = full.FirstValid()
		edges.firstReason = firstPeriodReason(cfg.Granularity, def.Category)
	}
	report.Trend = w.trend(full, edges)
	return report, nil
}

// commitmentReport computes one commitment over the canonical range and returns the
// report for the display window together with the full series.
func commitmentReport(cfg *contract.Config, w window, sources Sources, kind schema.CommitmentKind) (schema.CommitmentReport, schema.Series, error) {
	def, err := algo.DefinitionFor(kind, cfg.Granularity)
	if err != nil {
		return schema.CommitmentReport{}, schema.Series{}, err
	}
	report := schema.CommitmentReport{
		Kind:        kind,
		Category:    def.Category,
		Granularity: cfg.Granularity,
		Goal:        cfg.Goal(kind),
	}

	res, err := algo.ComputeCommitment(sources[def.Category], kind, cfg.Granularity, w.rng)
	if err != nil {
		return report, schema.Series{}, fmt.Errorf("%s commitment: %w", kind, err)
	}
	full, ok := res.Get()
	if !ok {
		report.Reason = res.Reason()
		return report, schema.Series{}, nil
	}
	report.Available = true
	report.Commitment = full.Slice(w.from, w.to)
	return report, full, nil
}

// GetCountResults counts the records of cfg.Category per period of a timestamp column,
// optionally broken down by a categorical column.
func GetCountResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) (schema.CountReport, error) {
	if cfg.Category == "" {
		return schema.CountReport{}, errors.New("a category is required for counts")
	}
	column := cfg.Column
	if column == "" {
		column = defaultCountColumns[cfg.Category]
	}
	report := schema.CountReport{
		Category:    cfg.Category,
		Column:      column,
		Breakdown:   cfg.Breakdown,
		Granularity: cfg.Granularity,
	}

	w, err := resolveWindow(cfg.Query())
	if err != nil {
		return report, err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogQueryHeader(cfg, "Counts")
	}

	sources, err := LoadSources(ctx, cfg, loader, mgr, cfg.Category)
	if err != nil {
		return report, err
	}
	rs, ok := sources[cfg.Category].Get()
	if !ok {
		report.Reason = sources[cfg.Category].Reason()
		return report, nil
	}

	totals, table, err := countSeries(rs, column, cfg.Breakdown, cfg.Granularity, w.rng)
	if err != nil {
		return report, fmt.Errorf("%s counts: %w", cfg.Category, err)
	}
	report.Available = true
	report.Totals = totals.Slice(w.from, w.to)
	if table != nil {
		shown := sliceTable(*table, w.from, w.to)
		report.Table = &shown
	}

	report.Rolling = w.rolling(totals)
	edges := trendEdges{lastReason: lastPeriodReason(cfg.Granularity, cfg.Category)}
	if cfg.PartialStart {
		edges.first = firstActive(totals)
		edges.firstReason = firstPeriodReason(cfg.Granularity, cfg.Category)
	}
	report.Trend = w.trend(totals, edges)
	return report, nil
}

// countSeries buckets rs by the period of column and counts records over rng.
// With a breakdown column it also returns the per-category table.
func countSeries(rs schema.RecordSet, column, breakdown string, g schema.Granularity, rng []schema.Period) (schema.Series, *schema.Table, error) {
	if rs.Category == schema.CAPAs && breakdown == schema.ColCAPAStatus {
		var err error
		if rs, err = agg.DeriveCAPAStatus(rs); err != nil {
			return schema.Series{}, nil, err
		}
	}

	norm, err := agg.AttachPeriodLabels(rs, []string{column}, []schema.Granularity{g})
	if err != nil {
		return schema.Series{}, nil, err
	}
	periodCol := schema.PeriodColumn(column, g)

	if breakdown == "" {
		totals, err := agg.CountByPeriod(norm, periodCol, rng)
		if err != nil {
			return schema.Series{}, nil, err
		}
		totals.Name = "total"
		return totals, nil, nil
	}

	table, err := agg.CountByPeriodAndCategory(norm, periodCol, breakdown, rng)
	if err != nil {
		return schema.Series{}, nil, err
	}
	return table.Totals(), &table, nil
}

// sliceTable returns the rows of t within [from, to].
func sliceTable(t schema.Table, from, to schema.Period) schema.Table {
	out := schema.Table{Start: from, Categories: t.Categories}
	for i, row := range t.Counts {
		p := t.Start.Add(i)
		if p.Before(from) || p.After(to) {
			continue
		}
		out.Counts = append(out.Counts, row)
	}
	return out
}

// GetCompositeResults blends the commitments of the weighted categories into the
// composite score. Any unavailable category fails the whole computation with a
// *schema.CategoriesUnavailableError.
func GetCompositeResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) (schema.CompositeReport, error) {
	w, err := resolveWindow(cfg.Query())
	if err != nil {
		return schema.CompositeReport{}, err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogQueryHeader(cfg, "Composite")
	}

	kinds := compositeKinds()
	weighted := make([]schema.Category, 0, len(cfg.Weights))
	for c := range cfg.Weights {
		if _, ok := kinds[c]; !ok {
			return schema.CompositeReport{}, fmt.Errorf("%w: %q has no commitment", schema.ErrUnknownCategory, c)
		}
		weighted = append(weighted, c)
	}
	slices.Sort(weighted)

	sources, err := LoadSources(ctx, cfg, loader, mgr, weighted...)
	if err != nil {
		return schema.CompositeReport{}, err
	}

	components := make(map[schema.Category]schema.Result[schema.Series], len(weighted))
	for _, c := range weighted {
		res, err := algo.ComputeCommitment(sources[c], kinds[c], cfg.Granularity, w.rng)
		if err != nil {
			return schema.CompositeReport{}, fmt.Errorf("%s commitment: %w", kinds[c], err)
		}
		components[c] = res
	}

	composite, err := algo.WeightedCommitment(components, cfg.Weights, cfg.CompositeOffset)
	if err != nil {
		return schema.CompositeReport{}, err
	}

	// The score is meaningful from the latest first-valid period on, so the window opens there by default.
	if cfg.From.IsZero() {
		w = w.withStart(composite.MinPeriod)
	}

	report := schema.CompositeReport{
		Granularity:       cfg.Granularity,
		Score:             composite.Score.Slice(w.from, w.to),
		MinPeriod:         composite.MinPeriod,
		MinPeriodCategory: composite.MinPeriodCategory,
		Weights:           cfg.Weights,
		Offset:            cfg.CompositeOffset,
		Components:        make(map[schema.Category]schema.Series, len(components)),
	}
	for c, res := range components {
		s, _ := res.Get()
		report.Components[c] = s.Slice(w.from, w.to)
	}

	report.Rolling = w.rolling(composite.Score)
	edges := trendEdges{lastReason: lastPeriodReason(cfg.Granularity, weighted...), percent: true}
	if !composite.MinPeriod.IsZero() {
		edges.first = composite.MinPeriod
		edges.firstReason = firstPeriodReason(cfg.Granularity, composite.MinPeriodCategory)
	}
	report.Trend = w.trend(composite.Score, edges)
	if report.Score.Valid() < report.Score.Len() {
		report.Notes = append(report.Notes, missingDataNote(weighted))
	}
	return report, nil
}

// compositeKinds maps each composite category to the commitment it contributes.
func compositeKinds() map[schema.Category]schema.CommitmentKind {
	return map[schema.Category]schema.CommitmentKind{
		schema.Audits:     schema.AuditCommitment,
		schema.CAPAs:      schema.CAPACommitment,
		schema.Complaints: schema.ComplaintCommitment,
		schema.Training:   schema.TrainingCommitment,
	}
}

// missingDataNote explains the empty periods of a composite score.
func missingDataNote(categories []schema.Category) string {
	reasons := map[schema.Category]string{
		schema.Audits:     "no audits planned",
		schema.CAPAs:      "no CAPAs submitted",
		schema.Complaints: "no complaints closed",
		schema.Training:   "no training due",
	}
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, reasons[c])
	}
	return "Missing periods have " + schema.ItemsInSeries(parts, "and/or", false) + "."
}

// GetRateResults computes complaints opened per 100 runs and per active account.
func GetRateResults(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager) (schema.RateReport, error) {
	report := schema.RateReport{Granularity: cfg.Granularity}
	w, err := resolveWindow(cfg.Query())
	if err != nil {
		return report, err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogQueryHeader(cfg, "Complaint rates")
	}

	sources, err := LoadSources(ctx, cfg, loader, mgr, schema.Complaints, schema.Usage)
	if err != nil {
		return report, err
	}
	var missing []string
	for _, c := range []schema.Category{schema.Complaints, schema.Usage} {
		if !sources[c].OK() {
			missing = append(missing, c.DisplayName())
		}
	}
	if len(missing) > 0 {
		report.Reason = fmt.Sprintf("Cannot compute complaint rates because %s data could not be retrieved.",
			schema.ItemsInSeries(missing, "and", false))
		return report, nil
	}

	complaints, _ := sources[schema.Complaints].Get()
	usage, _ := sources[schema.Usage].Get()
	rates, err := algo.ComplaintUsageRates(complaints, usage, cfg.Granularity, w.rng)
	if err != nil {
		return report, fmt.Errorf("complaint rates: %w", err)
	}

	report.Available = true
	report.ValidFrom = rates.ValidFrom
	report.PerHundredRun = rates.PerHundredRuns.Slice(w.from, w.to)
	report.PerAccount = rates.PerAccount.Slice(w.from, w.to)
	if !rates.ValidFrom.IsZero() && rates.ValidFrom.After(w.from) {
		report.Notes = append(report.Notes,
			fmt.Sprintf("Rates are undefined before %s as usage was not tracked earlier.", rates.ValidFrom.Label()))
	}
	return report, nil
}
