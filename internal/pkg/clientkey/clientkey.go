package clientkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Derive computes the stable pseudonymous client key for a downloading
// client: HMAC-SHA256 over the access credential scoped to one gallery
// session. The key is recomputed on every request and never stored as its
// own entity; it only appears as a join column on entitlements, orders and
// history rows.
//
// Lookup is single-path on purpose. Rows written under older derivation
// formats were migrated once, offline; there is no runtime fallback search.
func Derive(accessCredential string, sessionID uint, secret string) (string, error) {
	credential := strings.TrimSpace(accessCredential)
	if credential == "" {
		return "", errors.New("access credential is required")
	}
	if secret == "" {
		return "", errors.New("client key secret is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d", credential, sessionID)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
