// Package id generates short identifiers that tie together the log lines of
// one command run.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Generate returns "<prefix>-<unix seconds>-<8 hex chars>", for example
// view-1701432000-a1b2c3d4. The random part is omitted if the system random
// source fails.
func Generate(prefix string) string {
	stamp := prefix + "-" + strconv.FormatInt(time.Now().Unix(), 10)

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return stamp
	}
	return stamp + "-" + hex.EncodeToString(b[:])
}
