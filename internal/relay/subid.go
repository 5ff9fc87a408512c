package relay

import (
	"encoding/hex"

	"lukechampine.com/frand"
)

// newSubID mints a fresh short subscription id unique to one driver
// invocation, the way the teacher mints challenge tokens.
func newSubID() string {
	var b [8]byte
	frand.Read(b[:])
	return hex.EncodeToString(b[:])
}
