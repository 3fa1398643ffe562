package models

type AccessLevel string

const (
	AccessRestricted AccessLevel = "restricted"
	AccessPartial    AccessLevel = "partial"
	AccessFull       AccessLevel = "full"
)

func (a AccessLevel) Valid() bool {
	switch a {
	case AccessRestricted, AccessPartial, AccessFull:
		return true
	}
	return false
}

// ContactRecord is the candidate contact data attached to a proposal.
type ContactRecord struct {
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Social      string      `json:"social,omitempty"` // linkedin handle or url
	IsProtected bool        `json:"is_protected"`
	AccessLevel AccessLevel `json:"access_level"`
}

// DisplayContact is what a viewer is allowed to see of a ContactRecord.
type DisplayContact struct {
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Social string `json:"social"`
	Masked bool   `json:"masked"`
}
