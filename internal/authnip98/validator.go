// Package authnip98 validates the NIP-98-style request-bound authorization
// envelope clients present in the Authorization header of a write request.
package authnip98

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"

	"relaygate.dev/internal/nostrevent"
)

var (
	errInvalidID         = errors.New("authnip98: id is not a 32-byte hex string")
	errSignatureMismatch = errors.New("authnip98: schnorr verification failed")
)

// Kind discriminates the reason an envelope was rejected. Kept as a
// disjoint tagged variant rather than folded into a single string so
// callers can switch on it without string comparison.
type Kind string

const (
	MissingHeader    Kind = "missing_header"
	InvalidFormat    Kind = "invalid_format"
	InvalidBase64    Kind = "invalid_base64"
	InvalidJson      Kind = "invalid_json"
	InvalidKind      Kind = "invalid_kind"
	Expired          Kind = "expired"
	InvalidMethod    Kind = "invalid_method"
	InvalidUrl       Kind = "invalid_url"
	InvalidSignature Kind = "invalid_signature"
)

// Error is the rejection reason returned by Validate. It renders to the
// shared {error, detail} JSON contract via the httpapi envelope helpers.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Detail }

func reject(k Kind, detail string) *Error { return &Error{Kind: k, Detail: detail} }

const (
	requiredKind = 27235
	freshnessWindow = 60 * time.Second
)

// Validate binds r to the envelope presented in its Authorization header,
// checking, in order: header presence/format, kind, freshness, method tag,
// url tag, and finally the signature. requestURL is the absolute URL the
// caller considers this request to be (the gateway's own view of its
// externally-visible address), compared byte-exact against the envelope's
// "u" tag.
func Validate(r *http.Request, requestURL string, now time.Time) (*nostrevent.AuthEnvelope, *Error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, reject(MissingHeader, "missing Authorization header")
	}

	const prefix = "Nostr "
	if !strings.HasPrefix(header, prefix) {
		return nil, reject(InvalidFormat, "Authorization header must start with \"Nostr \"")
	}

	blob := strings.TrimPrefix(header, prefix)
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, reject(InvalidBase64, err.Error())
	}

	var env nostrevent.AuthEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, reject(InvalidJson, err.Error())
	}

	if env.Kind != requiredKind {
		return nil, reject(InvalidKind, "kind must be 27235")
	}

	age := now.Unix() - env.CreatedAt
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > freshnessWindow {
		return nil, reject(Expired, "created_at outside the 60s freshness window")
	}

	method, ok := env.Tag("method")
	if !ok || !strings.EqualFold(method, r.Method) {
		return nil, reject(InvalidMethod, "method tag does not match request method")
	}

	u, ok := env.Tag("u")
	if !ok || u != requestURL {
		return nil, reject(InvalidUrl, "u tag does not match request URL")
	}

	if err := verifySignature(&env); err != nil {
		return nil, reject(InvalidSignature, err.Error())
	}

	return &env, nil
}

// verifySignature recomputes the canonical id and checks the BIP-340
// Schnorr signature over it under the envelope's stated x-only pubkey. Any
// parse failure (wrong length, non-hex, off-curve point) surfaces as a
// plain error here, which Validate maps to InvalidSignature rather than a
// panic.
func verifySignature(env *nostrevent.AuthEnvelope) error {
	if err := nostrevent.VerifyCanonicalID(env); err != nil {
		return err
	}

	idBytes, err := hex.DecodeString(env.ID)
	if err != nil || len(idBytes) != 32 {
		return errInvalidID
	}

	pubkeyBytes, err := hex.DecodeString(env.Pubkey)
	if err != nil {
		return err
	}
	pub, err := schnorr.ParsePubKey(pubkeyBytes)
	if err != nil {
		return err
	}

	sigBytes, err := hex.DecodeString(env.Sig)
	if err != nil {
		return err
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return err
	}

	if !sig.Verify(idBytes, pub) {
		return errSignatureMismatch
	}
	return nil
}
