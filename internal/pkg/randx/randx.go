/*
Package randx generates identifiers and validates caller-chosen names.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxChannelLength is the longest accepted channel (room) name in bytes.
	MaxChannelLength = 64

	// channelChars lists every byte allowed in a channel name besides ASCII letters and digits.
	channelChars = " !#$%&()+-:;<=.>?@[]^_{|}~,"
)

// ConnectionID returns a fresh connection handle.
func ConnectionID() string {
	return uuid.NewString()
}

// IsValidChannel reports whether name is an acceptable channel (room) name:
// 1 to MaxChannelLength bytes of ASCII letters, digits, or the punctuation in channelChars.
func IsValidChannel(name string) bool {
	if name == "" || len(name) > MaxChannelLength {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte(channelChars, c) >= 0:
		default:
			return false
		}
	}

	return true
}
