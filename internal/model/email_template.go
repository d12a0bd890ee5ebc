package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateType enum constants
const (
	TemplateQuoteApproved = "quote_approved"
	TemplateQuoteDeclined = "quote_declined"
	TemplateInvitation    = "invitation"
	TemplateGeneral       = "general"
	TemplateReminder      = "reminder"
)

// TemplateTypes lists every supported template type.
var TemplateTypes = []string{
	TemplateQuoteApproved,
	TemplateQuoteDeclined,
	TemplateInvitation,
	TemplateGeneral,
	TemplateReminder,
}

// ValidTemplateType reports whether t is a supported template type.
func ValidTemplateType(t string) bool {
	for _, v := range TemplateTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EmailTemplate is an administrator-editable email body keyed by type.
type EmailTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"type"`
	Subject   string    `gorm:"type:varchar(255);not null" json:"subject"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	UpdatedBy string    `gorm:"type:varchar(64)" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Render substitutes {{key}} placeholders in subject and body. Unknown
// placeholders are left in place.
func (t EmailTemplate) Render(vars map[string]string) (subject, body string) {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body)
}

// Notification is the fire-and-forget payload handed to the email collaborator.
type Notification struct {
	RecipientEmail string            `json:"recipient_email"`
	TemplateType   string            `json:"template_type"`
	Variables      map[string]string `json:"variables"`
	Subject        string            `json:"subject,omitempty"`
	Body           string            `json:"body,omitempty"`
}
