package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{At: time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC), ID: uuid.New()}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.At.Equal(c.At))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursorEmpty(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestDecodeCursorInvalid(t *testing.T) {
	for _, token := range []string{"not base64!!", "bm9wZQ", Cursor{}.Encode() + "x"} {
		_, err := DecodeCursor(token)
		assert.Error(t, err, "token %q", token)
	}
}

func TestZeroCursorEncodesEmpty(t *testing.T) {
	assert.Equal(t, "", Cursor{}.Encode())
}
