package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"porttariff/internal/domain"
)

// DiffTariffs compares newly structured tariffs with a port's active ones.
// Tariffs match on charge type and size range. A match with a different
// amount is a price change, reported with its percentage relative to the
// active amount.
func DiffTariffs(active []domain.PortTariff, incoming []domain.StructuredTariff) *domain.TariffChanges {
	changes := &domain.TariffChanges{
		Added:    []domain.TariffRef{},
		Modified: []domain.PriceChange{},
		Removed:  []domain.TariffRef{},
	}

	byKey := make(map[string]*domain.PortTariff, len(active))
	for i := range active {
		k := matchKey(active[i].ChargeType, active[i].SizeRangeMin, active[i].SizeRangeMax)
		if _, ok := byKey[k]; !ok {
			byKey[k] = &active[i]
		}
	}

	matched := make(map[string]bool, len(incoming))
	for i := range incoming {
		t := &incoming[i]
		k := matchKey(t.ChargeType, t.SizeRangeMin, t.SizeRangeMax)
		if matched[k] {
			continue
		}
		matched[k] = true

		ref := domain.TariffRef{
			ChargeType:   t.ChargeType,
			ChargeName:   t.ChargeName,
			Amount:       t.Amount,
			Currency:     t.Currency,
			Unit:         t.Unit,
			SizeRangeMin: t.SizeRangeMin,
			SizeRangeMax: t.SizeRangeMax,
		}
		old, ok := byKey[k]
		switch {
		case !ok:
			changes.Added = append(changes.Added, ref)
		case !old.Amount.Equal(t.Amount):
			changes.Modified = append(changes.Modified, domain.PriceChange{
				TariffRef:     ref,
				OldAmount:     old.Amount,
				PercentChange: percentChange(old.Amount, t.Amount),
			})
		}
	}

	for i := range active {
		old := &active[i]
		k := matchKey(old.ChargeType, old.SizeRangeMin, old.SizeRangeMax)
		if matched[k] || byKey[k] != old {
			continue
		}
		changes.Removed = append(changes.Removed, domain.TariffRef{
			ChargeType:   old.ChargeType,
			ChargeName:   old.ChargeName,
			Amount:       old.Amount,
			Currency:     old.Currency,
			Unit:         old.Unit,
			SizeRangeMin: old.SizeRangeMin,
			SizeRangeMax: old.SizeRangeMax,
		})
	}
	return changes
}

func percentChange(from, to decimal.Decimal) float64 {
	if from.IsZero() {
		return 0
	}
	pct, _ := to.Sub(from).Div(from).Shift(2).Round(2).Float64()
	return pct
}

func matchKey(ct domain.ChargeType, lo, hi *int64) string {
	bound := func(v *int64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}
	return string(ct) + "|" + bound(lo) + "|" + bound(hi)
}
