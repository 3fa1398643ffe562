package privacy

import "strings"

const (
	// PhoneMaskSuffix replaces everything after the first three runes of a phone number.
	// It does not reflect how many digits were hidden.
	PhoneMaskSuffix = " *** *** ****"
	// SocialPlaceholder replaces a social handle entirely.
	SocialPlaceholder = "linkedin.com/in/••••••"

	visibleDomainTail = 4
	visiblePhoneHead  = 3
)

// MaskEmail keeps the first rune of the local part and the last four runes of
// the domain. Domains shorter than four runes are masked completely.
func MaskEmail(email string) string {
	local, domain, hasDomain := strings.Cut(email, "@")
	out := maskHead(local, 1)
	if !hasDomain {
		return out
	}
	return out + "@" + maskTail(domain, visibleDomainTail)
}

// MaskPhone keeps the first three runes and appends PhoneMaskSuffix.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) > visiblePhoneHead {
		r = r[:visiblePhoneHead]
	}
	return string(r) + PhoneMaskSuffix
}

// MaskSocial discards the handle.
func MaskSocial(string) string {
	return SocialPlaceholder
}

// maskHead keeps the first n runes of s and stars the rest.
func maskHead(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + strings.Repeat("*", len(r)-n)
}

// maskTail keeps the last n runes of s and stars the rest. When s has fewer
// than n runes nothing is kept.
func maskTail(s string, n int) string {
	r := []rune(s)
	if len(r) < n {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-n) + string(r[len(r)-n:])
}
