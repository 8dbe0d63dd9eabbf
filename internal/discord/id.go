// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package discord

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Epoch is the first second of 2015, the zero point of snowflake timestamps.
const Epoch = 1420070400000

// ID is a snowflake identifier. The zero value means "absent".
type ID uint64

// ParseID parses a decimal snowflake.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return ID(v), nil
}

// String returns the decimal form of the id.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id == 0
}

// Time returns the creation time encoded in the snowflake.
func (id ID) Time() time.Time {
	ms := int64(id>>22) + Epoch
	return time.UnixMilli(ms)
}

// MarshalJSON encodes the id as a JSON string, the way the gateway does.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts quoted and bare numbers as well as null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		*id = 0
		return nil
	}
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// Nonce is the client-chosen correlation value echoed back on message create.
// The gateway may deliver it either as a string or as a number.
type Nonce string

// UnmarshalJSON accepts quoted and bare nonces.
func (n *Nonce) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	*n = Nonce(bytes.Trim(b, `"`))
	return nil
}

// Uint64 parses the nonce as an unsigned integer. Nonces set by other
// clients may not be numeric, in which case ok is false.
func (n Nonce) Uint64() (uint64, bool) {
	if n == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
