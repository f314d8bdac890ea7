package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"ééééé", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Estimate{}.Count(tt.text), tt.text)
	}
}

func TestNew_UnknownEncoding(t *testing.T) {
	_, err := New("no_such_encoding")
	require.Error(t, err)

	counter, err := NewOrEstimate("no_such_encoding")
	require.Error(t, err)
	assert.IsType(t, Estimate{}, counter)
}

func TestCounter_CL100K(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	assert.Equal(t, 2, c.Count("hello world"))
	assert.Zero(t, c.Count(""))
}
