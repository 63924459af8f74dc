package curve

import "encoding/hex"

// EncodeHex returns the lowercase hex encoding of b, the canonical
// exchange form for scalars and points per the spec's data model.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex decodes a lowercase (or mixed-case) hex string back to bytes.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
