package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Proposal struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CompanyID   string `gorm:"column:company_id;type:uuid;index" json:"company_id"`
	RecruiterID string `gorm:"column:recruiter_id;type:uuid;index" json:"recruiter_id"`
	JobTitle    string `gorm:"column:job_title;type:text" json:"job_title"`

	CandidateName   string         `gorm:"column:candidate_name;type:text" json:"candidate_name"`
	CandidateSkills pq.StringArray `gorm:"column:candidate_skills;type:text[]" json:"candidate_skills"`
	// free-form proposal fields (salary expectation, notice period, ...)
	Details datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`

	CandidateEmail    string      `gorm:"column:candidate_email;type:text" json:"-"`
	CandidatePhone    string      `gorm:"column:candidate_phone;type:text" json:"-"`
	CandidateLinkedIn string      `gorm:"column:candidate_linkedin;type:text" json:"-"`
	IsProtected       bool        `gorm:"column:is_protected;default:true" json:"is_protected"`
	AccessLevel       AccessLevel `gorm:"column:access_level;type:text;default:restricted" json:"access_level"`

	CVURL            string           `gorm:"column:cv_url;type:text" json:"-"`
	AnonymizedURL    *string          `gorm:"column:anonymized_url;type:text" json:"-"`
	ProcessingStatus ProcessingStatus `gorm:"column:processing_status;type:text;default:none" json:"-"`
	CVAttemptID      string           `gorm:"column:cv_attempt_id;type:text" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposals" }

func (p *Proposal) Contact() ContactRecord {
	return ContactRecord{
		Email:       p.CandidateEmail,
		Phone:       p.CandidatePhone,
		Social:      p.CandidateLinkedIn,
		IsProtected: p.IsProtected,
		AccessLevel: p.AccessLevel,
	}
}

func (p *Proposal) CV() CVAsset {
	st := p.ProcessingStatus
	if st == "" {
		st = StatusNone
	}
	return CVAsset{
		OriginalURL:   p.CVURL,
		AnonymizedURL: p.AnonymizedURL,
		Status:        st,
		AttemptID:     p.CVAttemptID,
	}
}

// IsParty reports whether the viewer is the company or the recruiter of the proposal.
func (p *Proposal) IsParty(v Viewer) bool {
	switch v.Role {
	case RoleCompany:
		return v.UserID == p.CompanyID
	case RoleRecruiter:
		return v.UserID == p.RecruiterID
	}
	return false
}
