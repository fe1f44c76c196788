package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Field widths for the fixed single-table schema (spec §3).
const (
	UsernameBufSize = 33  // 32 chars + trailing null slot
	EmailBufSize    = 256 // 255 chars + trailing null slot
	UsernameMaxLen  = UsernameBufSize - 1
	EmailMaxLen     = EmailBufSize - 1

	// RowSize is the exact on-disk wire size: id(4) + username(33) + email(256).
	RowSize = 4 + UsernameBufSize + EmailBufSize
)

// Row is the fixed-schema unit of storage: a 32-bit id, a 33-byte username
// buffer and a 256-byte email buffer, laid out back-to-back with no padding.
type Row struct {
	ID       uint32
	Username [UsernameBufSize]byte
	Email    [EmailBufSize]byte
}

// NewRow builds a Row from plain strings, returning an error (without
// truncating) for a zero id or over-long input per spec §6's
// Insert{ id, username[<=32], email[<=255] }.
func NewRow(id uint32, username, email string) (Row, error) {
	var r Row
	if id == 0 {
		return r, fmt.Errorf("table: id must be > 0, got 0")
	}
	if len(username) > UsernameMaxLen {
		return r, fmt.Errorf("table: username %q exceeds max length %d", username, UsernameMaxLen)
	}
	if len(email) > EmailMaxLen {
		return r, fmt.Errorf("table: email %q exceeds max length %d", email, EmailMaxLen)
	}
	r.ID = id
	copy(r.Username[:], username)
	copy(r.Email[:], email)
	return r, nil
}

// UsernameString returns the username up to its first null byte.
func (r Row) UsernameString() string {
	return cstr(r.Username[:])
}

// EmailString returns the email up to its first null byte.
func (r Row) EmailString() string {
	return cstr(r.Email[:])
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// SerializeRow writes r into dst, which must be exactly RowSize bytes.
func SerializeRow(r Row, dst []byte) error {
	if len(dst) != RowSize {
		return fmt.Errorf("table: SerializeRow: dst length %d, want %d", len(dst), RowSize)
	}
	binary.LittleEndian.PutUint32(dst[0:4], r.ID)
	copy(dst[4:4+UsernameBufSize], r.Username[:])
	copy(dst[4+UsernameBufSize:RowSize], r.Email[:])
	return nil
}

// DeserializeRow reads a Row out of src, which must be exactly RowSize bytes.
func DeserializeRow(src []byte) (Row, error) {
	var r Row
	if len(src) != RowSize {
		return r, fmt.Errorf("table: DeserializeRow: src length %d, want %d", len(src), RowSize)
	}
	r.ID = binary.LittleEndian.Uint32(src[0:4])
	copy(r.Username[:], src[4:4+UsernameBufSize])
	copy(r.Email[:], src[4+UsernameBufSize:RowSize])
	return r, nil
}
