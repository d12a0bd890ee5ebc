package service

import (
	"time"

	"quoteportal/internal/model"

	"github.com/shopspring/decimal"
)

const trendMonths = 12

// Summarize derives analytics from a requisition collection. now anchors the
// trailing twelve-month trend window.
func Summarize(in []model.Requisition, now time.Time) model.Analytics {
	a := model.Analytics{
		Overview:               model.Overview{TotalValue: decimal.Zero, AverageValue: decimal.Zero},
		StatusBreakdown:        map[string]int{},
		DerivedStatusBreakdown: map[string]int{},
		HODStatusBreakdown:     map[string]int{},
		FinanceStatusBreakdown: map[string]int{},
		DepartmentBreakdown:    map[string]int{},
		UrgencyBreakdown:       map[string]int{},
		MonthlyTrends:          emptyTrends(now),
	}

	index := make(map[string]int, trendMonths)
	for i, m := range a.MonthlyTrends {
		index[m.Month] = i
	}

	var processedDays float64
	var processed int

	for _, r := range in {
		a.Overview.Total++
		a.Overview.TotalValue = a.Overview.TotalValue.Add(r.Amount)

		a.StatusBreakdown[orDefault(r.Status, model.SubmissionDraft)]++
		a.DerivedStatusBreakdown[r.DerivedStatus()]++
		a.HODStatusBreakdown[orDefault(string(r.HODStatus), string(model.StatusPending))]++
		a.FinanceStatusBreakdown[orDefault(string(r.FinanceStatus), string(model.StatusPending))]++
		a.DepartmentBreakdown[orDefault(r.RequestedByDepartment, "Unknown")]++
		a.UrgencyBreakdown[orDefault(r.Urgency, model.UrgencyNormal)]++

		if i, ok := index[r.CreatedAt.In(now.Location()).Format("2006-01")]; ok {
			a.MonthlyTrends[i].Count++
			a.MonthlyTrends[i].TotalValue = a.MonthlyTrends[i].TotalValue.Add(r.Amount)
		}

		if r.HODStatus == model.StatusApproved && r.FinanceStatus == model.StatusApproved {
			processedDays += r.UpdatedAt.Sub(r.CreatedAt).Hours() / 24
			processed++
		}
	}

	if a.Overview.Total > 0 {
		a.Overview.AverageValue = a.Overview.TotalValue.Div(decimal.NewFromInt(int64(a.Overview.Total)))
	}
	if processed > 0 {
		a.AvgProcessingTime = processedDays / float64(processed)
	}
	return a
}

// emptyTrends returns the trailing twelve calendar months, oldest first.
func emptyTrends(now time.Time) []model.MonthlyTrend {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	trends := make([]model.MonthlyTrend, trendMonths)
	for i := 0; i < trendMonths; i++ {
		m := first.AddDate(0, i-(trendMonths-1), 0)
		trends[i] = model.MonthlyTrend{Month: m.Format("2006-01"), TotalValue: decimal.Zero}
	}
	return trends
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
