package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	for _, offset := range []int64{0, 1, 9, 1000} {
		got, err := DecodeCursor(EncodeCursor(offset))
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}
}

func TestCursor_Format(t *testing.T) {
	assert.Equal(t, "YXJyYXljb25uZWN0aW9uOjA=", EncodeCursor(0))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!"},
		{"wrong prefix", "b2Zmc2V0OjE="},             // offset:1
		{"not a number", "YXJyYXljb25uZWN0aW9uOng="}, // arrayconnection:x
		{"negative", "YXJyYXljb25uZWN0aW9uOi0x"},     // arrayconnection:-1
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.cursor)
			assert.Error(t, err)
		})
	}
}
