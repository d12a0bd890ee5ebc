package service

import (
	"strings"
	"time"

	"quoteportal/internal/model"
	"quoteportal/pkg/txid"
)

const (
	csvHeader         = "Date,Employee,Item,Amount,Description,Status,Comment"
	exportDateLayout  = "2006-01-02"
	historyDateLayout = "1/2/2006, 3:04:05 PM"
)

// ExportFilename names a CSV export produced on day.
func ExportFilename(day time.Time) string {
	return "quotes_export_" + day.Format(exportDateLayout) + ".csv"
}

// ToCSV renders requisitions as one header line plus one line per row. Commas
// inside text are replaced with semicolons rather than quoted.
func ToCSV(in []model.Requisition) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for _, r := range in {
		writeRow(&b,
			r.Date.Format(exportDateLayout),
			cell(r.RequestedByName),
			cell(r.Item),
			r.Amount.StringFixed(2),
			cell(r.Description),
			r.DerivedStatus(),
			cell(r.Comment),
		)
	}
	return b.String()
}

// ToDetailReport renders a single requisition as a Field,Value table followed
// by its approval history. History timestamps are rendered in loc.
func ToDetailReport(r model.Requisition, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	writeRow(&b, "Field", "Value")
	writeRow(&b, "Transaction ID", txid.Format(r.TransactionID))
	writeRow(&b, "Date", r.Date.Format(exportDateLayout))
	writeRow(&b, "Employee", cell(r.RequestedByName))
	writeRow(&b, "Role", string(r.RequestedByRole))
	writeRow(&b, "Department", cell(r.RequestedByDepartment))
	writeRow(&b, "Item", cell(r.Item))
	writeRow(&b, "Amount", r.Amount.StringFixed(2))
	writeRow(&b, "Urgency", orDefault(r.Urgency, model.UrgencyNormal))
	writeRow(&b, "Description", cell(r.Description))
	writeRow(&b, "Comment", cell(r.Comment))
	writeRow(&b, "HOD Status", string(r.HODStatus))
	writeRow(&b, "Finance Status", string(r.FinanceStatus))
	writeRow(&b, "Status", r.DerivedStatus())
	if r.DocumentName != "" {
		writeRow(&b, "Document", cell(r.DocumentName))
	}

	b.WriteByte('\n')
	b.WriteString("Approval History\n")
	for _, h := range r.History {
		actor := h.ByName
		if actor == "" {
			actor = h.By
		}
		writeRow(&b, cell(h.Status), `"`+h.Date.In(loc).Format(historyDateLayout)+`"`, cell(actor))
	}
	return b.String()
}

var cellReplacer = strings.NewReplacer(",", ";", "\r\n", " ", "\n", " ", "\r", " ")

func cell(s string) string {
	return cellReplacer.Replace(s)
}

func writeRow(b *strings.Builder, cols ...string) {
	b.WriteString(strings.Join(cols, ","))
	b.WriteByte('\n')
}
