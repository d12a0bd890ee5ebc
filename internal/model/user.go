package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a directory entry managed by administrators. Credentials live with
// the identity provider; this table only records role, department and availability.
type User struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email      string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Role       Role           `gorm:"type:varchar(20);not null;index" json:"role"`
	Department string         `gorm:"type:varchar(100);index" json:"department"`
	Available  bool           `gorm:"not null;default:true" json:"available"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}
