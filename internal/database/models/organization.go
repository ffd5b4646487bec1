package models

type Organization struct {
	Base
	Name  string `gorm:"not null" json:"name"`
	TaxID string `gorm:"uniqueIndex;not null" json:"tax_id"` // NIF

	// Relationships
	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
