package transaction

import (
	"github.com/shopspring/decimal"
)

type Summary struct {
	Count          int                          `json:"count"`
	ByStatus       map[Status]int               `json:"byStatus"`
	TotalIncome    decimal.Decimal              `json:"totalIncome"`
	TotalExpense   decimal.Decimal              `json:"totalExpense"`
	Balance        decimal.Decimal              `json:"balance"`
	PendingIncome  decimal.Decimal              `json:"pendingIncome"`
	PendingExpense decimal.Decimal              `json:"pendingExpense"`
	ByCategory     map[Category]decimal.Decimal `json:"byCategory"`
}

// Summarize aggregates items. Totals, balance and the per-category sums
// only include completed transactions; pending ones are reported apart.
func Summarize(items []Transaction) Summary {
	s := Summary{
		ByStatus:       make(map[Status]int, len(AllStatuses)),
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
		PendingIncome:  decimal.Zero,
		PendingExpense: decimal.Zero,
		ByCategory:     make(map[Category]decimal.Decimal),
	}
	for _, st := range AllStatuses {
		s.ByStatus[st] = 0
	}

	for _, t := range items {
		s.Count++
		s.ByStatus[t.Status]++

		switch t.Status {
		case StatusCompleted:
			if t.Type == TypeIncome {
				s.TotalIncome = s.TotalIncome.Add(t.Amount)
			} else {
				s.TotalExpense = s.TotalExpense.Add(t.Amount)
			}
			s.ByCategory[t.Category] = s.ByCategory[t.Category].Add(t.Amount)
		case StatusPending:
			if t.Type == TypeIncome {
				s.PendingIncome = s.PendingIncome.Add(t.Amount)
			} else {
				s.PendingExpense = s.PendingExpense.Add(t.Amount)
			}
		}
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}
