package irpf

import (
	"context"
	"fmt"
)

// isSnapshotDate reports whether snapshots are taken at the end of a report.
func isSnapshotDate(end Date, c Consolidation) bool {
	if c == ConsolidationYearly {
		return end == end.EndOf(Yearly)
	}
	return end == end.EndOf(Monthly)
}

// SavePositions saves the positions held at the end of every closed month.
// Snapshots from the first generated day on are invalidated first, as they
// may be stale. Unregistered and empty positions are not saved.
func SavePositions(ctx context.Context, w SnapshotWriter, months *NegotiationReportMonth) (int, error) {
	reports := months.Reports()
	if len(reports) == 0 {
		return 0, nil
	}
	opts := reports[0].Options()
	after := reports[0].Range().From.Add(-1)
	if err := w.InvalidatePositions(ctx, after, opts.Consolidation, opts.Filter); err != nil {
		return 0, fmt.Errorf("invalidating positions after %s: %w", after, err)
	}

	saved := 0
	for _, report := range reports {
		end := report.Range().To
		if !report.IsClosed() || !isSnapshotDate(end, opts.Consolidation) {
			continue
		}
		for _, res := range report.Results() {
			if res.Instance == nil || !res.Asset.Buy.Quantity.IsPositive() {
				continue
			}
			if err := w.SavePosition(ctx, res.Asset.Snapshot(end, opts.Consolidation)); err != nil {
				return saved, fmt.Errorf("saving position %s on %s: %w", res.Ticker, end, err)
			}
			saved++
		}
	}
	return saved, nil
}

// SaveStatistics saves the statistics of every category at the end of every
// closed month, and marks as paid the tax records folded in a payable month.
func SaveStatistics(ctx context.Context, w SnapshotWriter, stats *StatsReports) (int, error) {
	reports := stats.Reports()
	if len(reports) == 0 {
		return 0, nil
	}
	opts := reports[0].Options()
	after := reports[0].Range().From.Add(-1)
	if err := w.InvalidateStatistics(ctx, after, opts.Consolidation, opts.Institution); err != nil {
		return 0, fmt.Errorf("invalidating statistics after %s: %w", after, err)
	}

	saved := 0
	for _, report := range reports {
		end := report.Range().To
		if !report.IsClosed() {
			continue
		}
		for _, c := range Categories() {
			s := report.results[c]
			if len(s.Taxes.Settles) > 0 {
				ids := make([]string, 0, len(s.Taxes.Settles))
				for _, item := range s.Taxes.Settles {
					ids = append(ids, item.ID)
				}
				if err := w.PayTaxes(ctx, ids, end); err != nil {
					return saved, fmt.Errorf("paying %s taxes of %s: %w", c.Code(), end, err)
				}
			}
			if !isSnapshotDate(end, opts.Consolidation) {
				continue
			}
			err := w.SaveStatistic(ctx, Statistic{
				Date:             end,
				Consolidation:    opts.Consolidation,
				Category:         c,
				Institution:      opts.Institution,
				CumulativeLosses: s.CumulativeLosses,
				ResidualTaxes:    s.ResidualTaxes,
				Patrimony:        s.Patrimony,
				IsValid:          true,
			})
			if err != nil {
				return saved, fmt.Errorf("saving %s statistic on %s: %w", c.Code(), end, err)
			}
			saved++
		}
	}
	return saved, nil
}
