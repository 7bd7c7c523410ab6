package enrichment

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"regexp"
)

// tempIDPattern is the canonical shape of a generated temporary company ID
// (spec §4.6 Layer 5): "IN" followed by 16 RFC 4648 base32 characters.
var tempIDPattern = regexp.MustCompile(`^IN[A-Z2-7]{16}$`)

// base32NoPad is RFC 4648 base32 without trailing '=' padding.
var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTempID deterministically derives a temporary company ID from a
// normalized company name: "IN" + base32(hmac_sha1(salt, name))[:16]. The
// same (salt, name) pair always yields the same ID, which is what lets two
// sequential runs of the same unresolved company converge on one identity
// rather than minting a new row each time (spec §4.6 Layer 5 stability
// requirement).
func GenerateTempID(salt, normalizedName string) string {
	mac := hmac.New(sha1.New, []byte(salt))
	mac.Write([]byte(normalizedName))
	sum := mac.Sum(nil)
	encoded := base32NoPad.EncodeToString(sum)
	return "IN" + encoded[:16]
}

// IsTempID reports whether id matches the generated-temp-ID shape.
func IsTempID(id string) bool {
	return tempIDPattern.MatchString(id)
}
