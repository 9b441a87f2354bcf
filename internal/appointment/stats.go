package appointment

import (
	"github.com/shopspring/decimal"
)

type Stats struct {
	Total            int             `json:"total"`
	ByStatus         map[Status]int  `json:"byStatus"`
	Upcoming         int             `json:"upcoming"`
	AttendanceRate   float64         `json:"attendanceRate"`
	CancellationRate float64         `json:"cancellationRate"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	PendingRevenue   decimal.Decimal `json:"pendingRevenue"`
	AverageRevenue   decimal.Decimal `json:"averageRevenue"`
	AverageDuration  float64         `json:"averageDuration"`
}

// ComputeStats derives aggregates purely from items. Revenue only counts
// completed sessions that are paid; rates are percentages and 0 for an
// empty set.
func ComputeStats(items []Appointment) Stats {
	st := Stats{
		ByStatus:       make(map[Status]int, len(AllStatuses)),
		TotalRevenue:   decimal.Zero,
		PendingRevenue: decimal.Zero,
		AverageRevenue: decimal.Zero,
	}
	for _, s := range AllStatuses {
		st.ByStatus[s] = 0
	}

	totalDuration := 0
	for _, a := range items {
		st.Total++
		st.ByStatus[a.Status]++
		totalDuration += a.Duration

		if a.Status == StatusCompleted {
			if a.PaymentStatus == PaymentPaid {
				st.TotalRevenue = st.TotalRevenue.Add(a.Price)
			} else if a.PaymentStatus == PaymentPending {
				st.PendingRevenue = st.PendingRevenue.Add(a.Price)
			}
		}
	}

	st.Upcoming = st.ByStatus[StatusScheduled] + st.ByStatus[StatusConfirmed]

	if st.Total == 0 {
		return st
	}

	total := float64(st.Total)
	st.AttendanceRate = float64(st.ByStatus[StatusCompleted]+st.ByStatus[StatusInProgress]) / total * 100
	st.CancellationRate = float64(st.ByStatus[StatusCancelled]) / total * 100
	st.AverageDuration = float64(totalDuration) / total

	if completed := st.ByStatus[StatusCompleted]; completed > 0 {
		st.AverageRevenue = st.TotalRevenue.Div(decimal.NewFromInt(int64(completed))).Round(2)
	}

	return st
}
