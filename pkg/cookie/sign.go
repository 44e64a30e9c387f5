package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"strings"
)

// SignedPrefix marks a cookie value as signed. Values without it are treated
// as legacy unsigned values and never accepted as identifiers.
const SignedPrefix = "s:"

// Sign returns value followed by "." and the unpadded base64 HMAC-SHA256 of value under secret.
func Sign(value, secret string) string {
	return value + "." + mac(value, secret)
}

// Unsign verifies signed against secret and returns the original value.
// ok is false on any tampering, truncation or secret mismatch.
func Unsign(signed, secret string) (value string, ok bool) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	expected := mac(value, secret)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", false
	}
	return value, true
}

// UnsignAny tries every secret in order, which lets old cookies survive a secret rotation.
func UnsignAny(signed string, secrets []string) (string, bool) {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		if value, ok := Unsign(signed, secret); ok {
			return value, true
		}
	}
	return "", false
}

// Encode produces the wire value of a signed cookie: SignedPrefix + Sign(value, secret).
func Encode(value, secret string) string {
	return SignedPrefix + Sign(value, secret)
}

// Decode reverses Encode, verifying against secrets. Percent-encoded values
// written by other frameworks are unescaped first.
func Decode(raw string, secrets []string) (string, bool) {
	if strings.Contains(raw, "%") {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return "", false
		}
		raw = unescaped
	}
	signed, found := strings.CutPrefix(raw, SignedPrefix)
	if !found {
		return "", false
	}
	return UnsignAny(signed, secrets)
}

func mac(value, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(h.Sum(nil))
}
