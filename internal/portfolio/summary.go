package portfolio

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
)

// Totals aggregates invested and current value over a set of holdings.
type Totals struct {
	Count        int             `json:"count"`
	Invested     decimal.Decimal `json:"invested"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	Gain         decimal.Decimal `json:"gain"`
	GainPercent  decimal.Decimal `json:"gainPercent"`
}

// KindTotals is the breakdown for one asset class.
type KindTotals struct {
	Kind domain.Kind `json:"kind"`
	Totals
}

// Summary is the dashboard view of a portfolio.
type Summary struct {
	Totals
	Priced int          `json:"priced"`
	ByKind []KindTotals `json:"byKind"`
}

// Summarize computes portfolio totals. Unpriced holdings count at cost.
func Summarize(holdings []domain.Holding) Summary {
	groups := lo.GroupBy(holdings, func(h domain.Holding) domain.Kind { return h.Kind })

	byKind := lo.FilterMap(domain.Kinds, func(k domain.Kind, _ int) (KindTotals, bool) {
		group, ok := groups[k]
		if !ok {
			return KindTotals{}, false
		}
		return KindTotals{Kind: k, Totals: totals(group)}, true
	})

	return Summary{
		Totals: totals(holdings),
		Priced: lo.CountBy(holdings, func(h domain.Holding) bool { return h.Valuation != nil }),
		ByKind: byKind,
	}
}

func totals(holdings []domain.Holding) Totals {
	invested := lo.Reduce(holdings, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
		return acc.Add(h.CostBasis())
	}, decimal.Zero)
	current := lo.Reduce(holdings, func(acc decimal.Decimal, h domain.Holding, _ int) decimal.Decimal {
		return acc.Add(currentValue(h))
	}, decimal.Zero)

	gain := current.Sub(invested)
	return Totals{
		Count:        len(holdings),
		Invested:     invested,
		CurrentValue: current,
		Gain:         gain,
		GainPercent:  domain.Percent(gain, invested),
	}
}

func currentValue(h domain.Holding) decimal.Decimal {
	switch {
	case h.Kind == domain.KindCash:
		return h.UnitCost
	case h.Valuation != nil:
		return h.Valuation.CurrentTotalValue
	default:
		return h.CostBasis()
	}
}
