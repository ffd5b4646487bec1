package models

import "github.com/google/uuid"

type User struct {
	Base
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	Name           string    `json:"name"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index" json:"organization_id"`
	Role           Role      `gorm:"type:varchar(20);default:'viewer'" json:"role"`
	Department     string    `json:"department"`
	DepartmentDesc string    `gorm:"type:text" json:"department_description"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the mailbox part of the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i, c := range u.Email {
		if c == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
