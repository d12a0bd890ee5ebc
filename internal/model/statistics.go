package model

import "github.com/shopspring/decimal"

// Analytics is the summary derived from a requisition collection.
type Analytics struct {
	Overview               Overview       `json:"overview"`
	StatusBreakdown        map[string]int `json:"status_breakdown"`
	DerivedStatusBreakdown map[string]int `json:"derived_status_breakdown"`
	HODStatusBreakdown     map[string]int `json:"hod_status_breakdown"`
	FinanceStatusBreakdown map[string]int `json:"finance_status_breakdown"`
	DepartmentBreakdown    map[string]int `json:"department_breakdown"`
	UrgencyBreakdown       map[string]int `json:"urgency_breakdown"`
	MonthlyTrends          []MonthlyTrend `json:"monthly_trends"`
	AvgProcessingTime      float64        `json:"avg_processing_time"` // days
}

// Overview aggregates counts and values
type Overview struct {
	Total        int             `json:"total"`
	TotalValue   decimal.Decimal `json:"total_value"`
	AverageValue decimal.Decimal `json:"average_value"`
}

// MonthlyTrend is one calendar-month bucket labelled YYYY-MM.
type MonthlyTrend struct {
	Month      string          `json:"month"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
}
