package session

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// fingerprint hashes the JSON form of values. encoding/json writes map keys
// in sorted order, so insertion order never changes the result.
func fingerprint(values map[string]any) string {
	if len(values) == 0 {
		values = map[string]any{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		// Values that cannot be encoded still need a stable digest.
		b = fmt.Appendf(nil, "%#v", values)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
