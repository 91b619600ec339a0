/*
Package user defines the identity a client asserts when it joins the relay.
*/
package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a stable user identifier. Clients may send it as a JSON string or number;
// it is always held and re-encoded as a string.
type ID string

// UnmarshalJSON accepts "42", 42 and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Numeric returns the id as a media uid, or 0 when it is not a uint32.
func (id ID) Numeric() uint32 {
	n, err := strconv.ParseUint(string(id), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// Identity is what a connection claims to be after join.
type Identity struct {
	// UserID is the stable user id used for call routing.
	UserID ID `json:"userId"`

	// DisplayName is the human-readable name shown to other users.
	DisplayName string `json:"displayName"`

	// ProfileImage is an optional avatar URL.
	ProfileImage string `json:"profileImage,omitempty"`
}
