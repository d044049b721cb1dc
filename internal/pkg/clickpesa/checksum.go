// internal/pkg/clickpesa/checksum.go
package clickpesa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrChecksumUnavailable means no checksum key is configured. Requests must not
// be sent without a checksum.
var ErrChecksumUnavailable = errors.New("clickpesa: checksum key not configured")

// Checksum signs a payload: HMAC-SHA256 over the values of its keys taken in
// alphabetical key order and concatenated. A "checksum" key is ignored.
func Checksum(secret string, payload map[string]any) (string, error) {
	if secret == "" {
		return "", ErrChecksumUnavailable
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "checksum" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprint(payload[k]))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
