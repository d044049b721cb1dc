// internal/pkg/clickpesa/phone.go
package clickpesa

import "strings"

// NormalizePhone converts a local or international number to the 255XXXXXXXXX
// form the gateway expects.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "+", "", "-", "").Replace(strings.TrimSpace(phone))
	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "255"):
		return p
	case strings.HasPrefix(p, "0"):
		return "255" + p[1:]
	default:
		return "255" + p
	}
}
