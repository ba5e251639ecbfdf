package model

import (
	"time"
)

// Founder represents a registered startup founder account
type Founder struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"column:password_hash;type:varchar(255);not null"`
	FirstName   string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName    string    `json:"last_name" gorm:"type:varchar(100);not null"`
	CompanyName *string   `json:"company_name,omitempty" gorm:"type:varchar(255)"`
	Industry    *string   `json:"industry,omitempty" gorm:"type:varchar(100)"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the default table name
func (Founder) TableName() string {
	return "founders"
}

// DisplayName returns the founder's full name as presented to the voice agent
func (f *Founder) DisplayName() string {
	return f.FirstName + " " + f.LastName
}
