package cursor

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/sgmcp/internal/cerrors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Cursor{LastCompletedPath: "src/pkg/foo.go", LastWithinFileMatchIndex: 3, MaxResultsSeen: 42}
	token, err := Encode(c)
	require.NoError(t, err)

	got, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-a-valid-cursor!!")
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidCursor, cerrors.KindOf(err))
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	// A well-formed payload whose leading version byte is not version1.
	var raw bytes.Buffer
	raw.WriteByte(version1 + 1)
	writeString(&raw, "a.go")
	writeInt(&raw, 0)
	writeInt(&raw, 0)

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	_, err = Decode(base64.RawURLEncoding.EncodeToString(compressed.Bytes()))
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidCursor, cerrors.KindOf(err))
}

func TestDecodeRejectsOversizedStringLengthWithoutPanicking(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteByte(version1)
	writeInt(&raw, 1<<40) // length prefix far larger than any real cursor payload

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	token := base64.RawURLEncoding.EncodeToString(compressed.Bytes())

	_, err = Decode(token)
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidCursor, cerrors.KindOf(err))
}

func TestDecodeRejectsNegativeStringLength(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteByte(version1)
	writeInt(&raw, -1)

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	token := base64.RawURLEncoding.EncodeToString(compressed.Bytes())

	_, err = Decode(token)
	require.Error(t, err)
	assert.Equal(t, cerrors.InvalidCursor, cerrors.KindOf(err))
}
