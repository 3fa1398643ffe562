package models

import "time"

type Review struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID   string    `gorm:"column:company_id;type:uuid;index" json:"company_id"`
	RecruiterID string    `gorm:"column:recruiter_id;type:uuid;index" json:"recruiter_id"`
	Rating      int       `gorm:"column:rating;type:smallint" json:"rating"`
	Comment     string    `gorm:"column:comment;type:text" json:"comment,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

type RatingSummary struct {
	RecruiterID string  `json:"recruiter_id"`
	Count       int64   `json:"count"`
	Average     float64 `json:"average"`
}
