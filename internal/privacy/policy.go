// Package privacy decides which representation of a candidate's contact
// fields a viewer may see.
package privacy

import (
	"strings"

	"github.com/yoockh/recruitlink/internal/models"
)

var notSpecified = map[models.UserRole]string{
	models.RoleCompany:   "Not specified",
	models.RoleRecruiter: "Not provided by candidate",
}

// NotSpecified is the placeholder shown to role for an absent field.
func NotSpecified(role models.UserRole) string {
	if s, ok := notSpecified[role]; ok {
		return s
	}
	return notSpecified[models.RoleCompany]
}

// Reveals reports whether rec is shown verbatim to role.
func Reveals(rec models.ContactRecord, role models.UserRole) bool {
	return role == models.RoleRecruiter || !rec.IsProtected || rec.AccessLevel == models.AccessFull
}

// Evaluate projects rec for a viewer with the given role. It never fails:
// absent fields degrade to the role's placeholder and unknown access levels
// are treated as restricted.
func Evaluate(rec models.ContactRecord, role models.UserRole) models.DisplayContact {
	email := strings.TrimSpace(rec.Email)
	phone := strings.TrimSpace(rec.Phone)
	social := strings.TrimSpace(rec.Social)

	out := models.DisplayContact{}
	switch {
	case Reveals(rec, role):
		out.Email, out.Phone, out.Social = email, phone, social
	case rec.AccessLevel == models.AccessPartial:
		out.Email = apply(email, MaskEmail)
		out.Phone, out.Social = phone, social
		out.Masked = email != ""
	default:
		out.Email = apply(email, MaskEmail)
		out.Phone = apply(phone, MaskPhone)
		out.Social = apply(social, MaskSocial)
		out.Masked = email != "" || phone != "" || social != ""
	}

	ph := NotSpecified(role)
	if out.Email == "" {
		out.Email = ph
	}
	if out.Phone == "" {
		out.Phone = ph
	}
	if out.Social == "" {
		out.Social = ph
	}
	return out
}

// CanRequestFullAccess reports whether role may ask the recruiter to lift the
// protection on rec.
func CanRequestFullAccess(rec models.ContactRecord, role models.UserRole) bool {
	return role == models.RoleCompany && rec.IsProtected && rec.AccessLevel == models.AccessRestricted
}

func apply(v string, mask func(string) string) string {
	if v == "" {
		return ""
	}
	return mask(v)
}
