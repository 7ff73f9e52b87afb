// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives a deterministic cache key from an operation prefix and its
// parameters. Parameters are canonicalized through a JSON round trip, which
// orders map keys, so maps holding equal values in any insertion order
// produce the same key. The full SHA-256 digest is kept.
func Key(prefix string, params any) string {
	canon, err := canonicalJSON(params)
	if err != nil {
		// Unencodable parameters still get a stable key per value.
		canon = []byte(fmt.Sprintf("%#v", params))
	}
	sum := sha256.Sum256(canon)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
