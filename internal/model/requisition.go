package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus is the value of a single approval stage.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "Pending"
	StatusApproved ApprovalStatus = "Approved"
	StatusDeclined ApprovalStatus = "Declined"
)

// Derived status labels. These are computed on read and never persisted.
const (
	DerivedPending       = "Pending"
	DerivedFinanceReview = "Finance Review"
	DerivedApproved      = "Approved"
	DerivedDeclined      = "Declined"
)

// Submission status values.
const (
	SubmissionDraft     = "Draft"
	SubmissionSubmitted = "Submitted"
)

// Urgency levels
const (
	UrgencyLow    = "LOW"
	UrgencyNormal = "NORMAL"
	UrgencyHigh   = "HIGH"
	UrgencyUrgent = "URGENT"
)

// History labels and the system actor.
const (
	HistoryHODApproved     = "HOD Approved"
	HistoryHODDeclined     = "HOD Declined"
	HistoryFinanceApproved = "Finance Approved"
	HistoryFinanceDeclined = "Finance Declined"
	HistoryAutoApprovedHOD = "Auto-approved (HOD Unavailable)"
	SystemActor            = "System"
)

// Requisition is a purchase request (quote) moving through HOD then Finance approval.
type Requisition struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`

	RequestedBy           string `gorm:"type:varchar(64);not null;index" json:"requested_by"`
	RequestedByName       string `gorm:"type:varchar(255);not null" json:"requested_by_name"`
	RequestedByEmail      string `gorm:"type:varchar(255)" json:"requested_by_email"`
	RequestedByRole       Role   `gorm:"type:varchar(20);not null;index" json:"requested_by_role"`
	RequestedByDepartment string `gorm:"type:varchar(100);index" json:"requested_by_department"`

	Item        string          `gorm:"type:varchar(255);not null" json:"item"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	Comment     string          `gorm:"type:text" json:"comment"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	Urgency     string          `gorm:"type:varchar(10)" json:"urgency"`
	Status      string          `gorm:"type:varchar(20);not null;default:'Submitted'" json:"status"` // Draft or Submitted, not the approval state

	HODStatus     ApprovalStatus `gorm:"column:hod_status;type:varchar(20);not null;default:'Pending';index" json:"hod_status"`
	FinanceStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"finance_status"`

	DocumentURL  string `gorm:"type:text" json:"document_url,omitempty"`
	DocumentName string `gorm:"type:varchar(255)" json:"document_name,omitempty"`
	DocumentType string `gorm:"type:varchar(100)" json:"document_type,omitempty"`

	History []HistoryEntry `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"history"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry is one row of a requisition's append-only approval log.
type HistoryEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Seq           int       `gorm:"not null" json:"seq"`
	Status        string    `gorm:"type:varchar(64);not null" json:"status"`
	Date          time.Time `gorm:"not null" json:"date"`
	By            string    `gorm:"type:varchar(64);not null" json:"by"`
	ByName        string    `gorm:"type:varchar(255)" json:"by_name"`
	ByRole        string    `gorm:"type:varchar(20)" json:"by_role"`
}

func (HistoryEntry) TableName() string {
	return "requisition_history"
}

// DerivedStatus folds the two approval fields into a single display label.
// A decline at either stage wins over everything else.
func DerivedStatus(hod, finance ApprovalStatus) string {
	switch {
	case hod == StatusDeclined || finance == StatusDeclined:
		return DerivedDeclined
	case finance == StatusApproved:
		return DerivedApproved
	case hod == StatusApproved:
		return DerivedFinanceReview
	default:
		return DerivedPending
	}
}

// DerivedStatus returns the display status of r.
func (r *Requisition) DerivedStatus() string {
	return DerivedStatus(r.HODStatus, r.FinanceStatus)
}

// Touched reports whether any approval action has been recorded.
func (r *Requisition) Touched() bool {
	return len(r.History) > 0 || r.HODStatus != StatusPending || r.FinanceStatus != StatusPending
}
