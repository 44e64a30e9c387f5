// Package cookie signs cookie values and manages cookies with shared defaults.
//
// Signed values use the wire form "s:<value>.<mac>", where mac is the
// unpadded base64 HMAC-SHA256 of value. Verification tries a list of secrets
// in order, so a new signing secret can be introduced while cookies signed
// with the previous one keep working:
//
//	m, err := cookie.New([]string{newSecret, oldSecret})
//	m.SetSigned(w, "connect.sid", id)
//	id, err := m.GetSigned(r, "connect.sid")
//
// Sign, Unsign, UnsignAny, Encode and Decode are the underlying primitives.
// Unsign and Decode report failure with a boolean; a bad signature is an
// expected outcome, not an error.
package cookie
