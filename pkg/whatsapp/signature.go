package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ValidSignature checks the X-Hub-Signature-256 header Meta attaches to
// webhook deliveries: "sha256=" followed by the hex HMAC-SHA256 of the raw
// body under the app secret.
func ValidSignature(body []byte, header string, appSecret string) bool {
	signature := strings.TrimPrefix(header, "sha256=")
	if signature == header || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
