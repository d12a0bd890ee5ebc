package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRequisition  = "CREATE_REQUISITION"
	ActionUpdateRequisition  = "UPDATE_REQUISITION"
	ActionRouteRequisition   = "ROUTE_REQUISITION"
	ActionHODApprove         = "HOD_APPROVE"
	ActionHODDecline         = "HOD_DECLINE"
	ActionFinanceApprove     = "FINANCE_APPROVE"
	ActionFinanceDecline     = "FINANCE_DECLINE"
	ActionExportRequisitions = "EXPORT_REQUISITIONS"

	ActionCreateUser          = "CREATE_USER"
	ActionUpdateUser          = "UPDATE_USER"
	ActionDeleteUser          = "DELETE_USER"
	ActionUpdateEmailTemplate = "UPDATE_EMAIL_TEMPLATE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    string    `gorm:"type:varchar(64);index" json:"actor_id"` // "System" for automated routing
	ActorName  string    `gorm:"type:varchar(255)" json:"actor_name"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // transaction id, email, template type
	Details    string    `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
