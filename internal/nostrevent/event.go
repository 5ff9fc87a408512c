// Package nostrevent defines the opaque event and auth-envelope shapes the
// gateway touches. Ordinary relay events are never deserialized beyond what
// is required to extract an id for publish tracking; only an AuthEnvelope
// is ever signature-checked.
package nostrevent

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Event is the opaque seven-field document the gateway forwards and stores
// without interpretation.
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// ExtractID pulls the id field out of a raw opaque event payload without
// otherwise interpreting it. Returns "unknown" if the field is absent or
// the payload doesn't parse, matching the publish worker's fallback rule.
func ExtractID(raw []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.ID == "" {
		return "unknown"
	}
	return probe.ID
}

// AuthEnvelope is the kind-27235 signed event a client presents in the
// Authorization header, restricted to the fields the validator inspects.
type AuthEnvelope struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Tag returns the single value of the first tag row named key (tags[i][0]
// == key, value at tags[i][1]), and whether exactly one such row exists.
// More than one matching row is treated the same as zero: the caller wants
// "exactly one".
func (e *AuthEnvelope) Tag(key string) (value string, exactlyOne bool) {
	count := 0
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == key {
			count++
			value = t[1]
		}
	}
	return value, count == 1
}

// ErrCanonicalMismatch is returned by VerifyID when the recomputed id
// disagrees with the envelope's stated id.
var ErrCanonicalMismatch = errors.New("nostrevent: id does not match canonical serialization")

// CanonicalSerialization produces the deterministic minimal-JSON byte
// sequence [0, pubkey, created_at, kind, tags, content] is hashed from,
// per NIP-01: no inter-token whitespace, fields in the fixed order given.
func CanonicalSerialization(e *AuthEnvelope) ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}
	arr := []interface{}{0, e.Pubkey, e.CreatedAt, e.Kind, tags, e.Content}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; compact removes it
	// and any incidental whitespace though there should be none here.
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		return nil, err
	}
	return compacted.Bytes(), nil
}

// ComputedID returns hex(SHA-256(CanonicalSerialization(e))).
func ComputedID(e *AuthEnvelope) (string, error) {
	ser, err := CanonicalSerialization(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(ser)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyCanonicalID recomputes the id from the envelope's fields and
// compares it, case-sensitively, hex-lowercase, against the stated id.
func VerifyCanonicalID(e *AuthEnvelope) error {
	computed, err := ComputedID(e)
	if err != nil {
		return err
	}
	if computed != e.ID {
		return ErrCanonicalMismatch
	}
	return nil
}
