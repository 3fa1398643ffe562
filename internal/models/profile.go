package models

import "time"

type Profile struct {
	UserID      string   `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Email       string   `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	FullName    string   `gorm:"column:full_name;type:text" json:"full_name"`
	Role        UserRole `gorm:"column:role;type:text" json:"role"`
	CompanyName string   `gorm:"column:company_name;type:text" json:"company_name,omitempty"`
	PhoneNumber string   `gorm:"column:phone_number;type:text" json:"phone_number,omitempty"`
	AvatarURL   string   `gorm:"column:avatar_url;type:text" json:"avatar_url,omitempty"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
