package irpf

import (
	"fmt"
	"strings"
)

type Period int

const (
	Daily Period = iota
	Monthly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "periodic"
	}
}

// Range returns a Range for the given period containing the date d.
func (p Period) Range(d Date) Range {
	return Range{From: d.StartOf(p), To: d.EndOf(p)}
}

func ParsePeriod(p string) (Period, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "daily", "day":
		return Daily, nil
	case "monthly", "month":
		return Monthly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", p)
	}
}

// Consolidation is the granularity of the persisted Position and Statistic
// snapshots.
type Consolidation int

const (
	ConsolidationYearly  Consolidation = 1
	ConsolidationMonthly Consolidation = 2
)

func (c Consolidation) String() string {
	switch c {
	case ConsolidationYearly:
		return "yearly"
	case ConsolidationMonthly:
		return "monthly"
	default:
		return fmt.Sprintf("consolidation(%d)", int(c))
	}
}

// PositionDate returns the date of the snapshot seeding a period that starts
// on start: the last day of the previous month for monthly consolidation, or
// the last day of the previous year for yearly consolidation.
func (c Consolidation) PositionDate(start Date) Date {
	if c == ConsolidationYearly {
		return NewDate(start.Year()-1, 12, 31)
	}
	return start.StartOf(Monthly).Add(-1)
}

func ParseConsolidation(s string) (Consolidation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yearly", "year", "1":
		return ConsolidationYearly, nil
	case "monthly", "month", "2", "":
		return ConsolidationMonthly, nil
	default:
		return 0, fmt.Errorf("unknown consolidation %q", s)
	}
}
