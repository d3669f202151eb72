package logger

import "strings"

// RedactEmail masks the local part of an address and keeps the domain, so
// logs still show which organisation a lead came from.
//
//	"john.doe@example.com" → "jo***@example.com"
//	"ab@example.com"       → "***@example.com"
func RedactEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}
