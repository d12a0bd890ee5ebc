package service

import (
	"testing"
	"time"

	"quoteportal/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Empty(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	a := Summarize(nil, now)

	assert.Zero(t, a.Overview.Total)
	assert.True(t, a.Overview.TotalValue.IsZero())
	assert.True(t, a.Overview.AverageValue.IsZero())
	assert.Zero(t, a.AvgProcessingTime)
	assert.Empty(t, a.StatusBreakdown)

	require.Len(t, a.MonthlyTrends, 12)
	assert.Equal(t, "2025-11", a.MonthlyTrends[0].Month)
	assert.Equal(t, "2026-10", a.MonthlyTrends[11].Month)
	for _, m := range a.MonthlyTrends {
		assert.Zero(t, m.Count)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	in := []model.Requisition{
		{
			Amount: decimal.NewFromInt(100), Status: model.SubmissionSubmitted, RequestedByDepartment: "IT",
			Urgency: model.UrgencyHigh, HODStatus: model.StatusApproved, FinanceStatus: model.StatusApproved,
			CreatedAt: created, UpdatedAt: created.Add(48 * time.Hour),
		},
		{
			Amount: decimal.NewFromInt(200), Status: model.SubmissionSubmitted, RequestedByDepartment: "IT",
			HODStatus: model.StatusApproved, FinanceStatus: model.StatusApproved,
			CreatedAt: created.AddDate(0, -1, 0), UpdatedAt: created.AddDate(0, -1, 4),
		},
		{
			Amount:    decimal.NewFromInt(300),
			CreatedAt: created.AddDate(-2, 0, 0), UpdatedAt: created.AddDate(-2, 0, 0),
		},
	}

	a := Summarize(in, now)

	assert.Equal(t, 3, a.Overview.Total)
	assert.Equal(t, "600.00", a.Overview.TotalValue.StringFixed(2))
	assert.Equal(t, "200.00", a.Overview.AverageValue.StringFixed(2))

	assert.Equal(t, map[string]int{model.SubmissionSubmitted: 2, model.SubmissionDraft: 1}, a.StatusBreakdown)
	assert.Equal(t, map[string]int{"Approved": 2, "Pending": 1}, a.HODStatusBreakdown)
	assert.Equal(t, map[string]int{"Approved": 2, "Pending": 1}, a.FinanceStatusBreakdown)
	assert.Equal(t, map[string]int{model.DerivedApproved: 2, model.DerivedPending: 1}, a.DerivedStatusBreakdown)
	assert.Equal(t, map[string]int{"IT": 2, "Unknown": 1}, a.DepartmentBreakdown)
	assert.Equal(t, map[string]int{model.UrgencyHigh: 1, model.UrgencyNormal: 2}, a.UrgencyBreakdown)

	last := a.MonthlyTrends[11]
	assert.Equal(t, "2026-10", last.Month)
	assert.Equal(t, 1, last.Count)
	assert.Equal(t, "100.00", last.TotalValue.StringFixed(2))
	assert.Equal(t, 1, a.MonthlyTrends[10].Count)

	trendTotal := 0
	for _, m := range a.MonthlyTrends {
		trendTotal += m.Count
	}
	assert.Equal(t, 2, trendTotal, "rows outside the window only count in the overview")

	assert.InDelta(t, 3.0, a.AvgProcessingTime, 1e-9)
}

func TestSummarize_TrendsUseReportingLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, loc)
	lateSeptemberUTC := time.Date(2026, 9, 30, 22, 0, 0, 0, time.UTC)

	a := Summarize([]model.Requisition{{Amount: decimal.NewFromInt(1), CreatedAt: lateSeptemberUTC}}, now)
	assert.Equal(t, 1, a.MonthlyTrends[11].Count)
}
