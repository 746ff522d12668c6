// Package cursor implements the opaque, resumable pagination token:
// a versioned struct, gzip-compressed, then base64 URL-safe encoded. Decoding an unknown
// version or corrupted payload fails closed with InvalidCursor; callers must restart.
package cursor

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"io"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
)

// version1 is the only cursor schema emitted today. Future incompatible schema changes
// bump this; Decode rejects any version it doesn't recognize rather than guessing.
const version1 byte = 1

// Cursor is the resumable position within a deterministic, ordered file walk.
type Cursor struct {
	LastCompletedPath        string
	LastWithinFileMatchIndex int
	MaxResultsSeen           int
}

// Encode serializes c into the wire format: version byte + length-prefixed fields,
// gzip-compressed, base64 URL-safe encoded without padding.
func Encode(c Cursor) (string, error) {
	var raw bytes.Buffer
	raw.WriteByte(version1)
	writeString(&raw, c.LastCompletedPath)
	writeInt(&raw, c.LastWithinFileMatchIndex)
	writeInt(&raw, c.MaxResultsSeen)

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		return "", cerrors.Wrap(cerrors.Internal, err, "compressing cursor")
	}
	if err := gz.Close(); err != nil {
		return "", cerrors.Wrap(cerrors.Internal, err, "compressing cursor")
	}

	return base64.RawURLEncoding.EncodeToString(compressed.Bytes()), nil
}

// Decode parses a cursor token produced by Encode. Any malformed input — bad base64,
// bad gzip, unknown version, truncated fields — fails with InvalidCursor.
func Decode(token string) (Cursor, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor is not valid base64")
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor is not valid gzip")
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor payload is corrupt")
	}

	r := bytes.NewReader(raw)
	version, err := r.ReadByte()
	if err != nil {
		return Cursor{}, cerrors.New(cerrors.InvalidCursor, "cursor payload is empty")
	}
	if version != version1 {
		return Cursor{}, cerrors.New(cerrors.InvalidCursor, "unsupported cursor version %d", version)
	}

	path, err := readString(r)
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor payload is truncated")
	}
	matchIdx, err := readInt(r)
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor payload is truncated")
	}
	maxSeen, err := readInt(r)
	if err != nil {
		return Cursor{}, cerrors.Wrap(cerrors.InvalidCursor, err, "cursor payload is truncated")
	}

	return Cursor{
		LastCompletedPath:        path,
		LastWithinFileMatchIndex: matchIdx,
		MaxResultsSeen:           maxSeen,
	}, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeInt(buf, len(s))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readInt(r)
	if err != nil {
		return "", err
	}
	// n comes straight off the wire: an attacker-supplied cursor token can make it
	// negative or absurdly large, and make([]byte, n) would panic rather than fail the
	// request. r.Len() bounds it to what's actually left in the decompressed payload.
	if n < 0 || n > r.Len() {
		return "", cerrors.New(cerrors.InvalidCursor, "cursor string length %d out of range", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeInt(buf *bytes.Buffer, n int) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(int64(n)))
	buf.Write(tmp[:])
}

func readInt(r *bytes.Reader) (int, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return int(int64(binary.BigEndian.Uint64(tmp[:]))), nil
}
