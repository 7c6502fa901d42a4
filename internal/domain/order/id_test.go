package order

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id, err := newID("admin@juice-sh.op", bytes.NewReader(bytes.Repeat([]byte{0xab}, 8)))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{4}-abababababababab$`), id)

	first, err := NewID("")
	require.NoError(t, err)
	second, err := NewID("")
	require.NoError(t, err)

	// md5("") = d41d8cd9...
	assert.Equal(t, "d41d", first[:4])
	assert.Equal(t, first[:5], second[:5])
	assert.NotEqual(t, first, second)
	assert.Len(t, first, 21)
}

func TestNewID_ShortRandom(t *testing.T) {
	_, err := newID("x", bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"admin@juice-sh.op", "*dm*n@j**c*-sh.*p"},
		{"JIM@Example.COM", "J*M@*x*mpl*.C*M"},
		{"", ""},
		{"xyz@bcd.fg", "xyz@bcd.fg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}
