package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoxrConvertRejectsEmptyInput(t *testing.T) {
	s := NewSoxr()
	_, err := s.Convert(nil, 128)
	assert.Error(t, err)
}

func TestSoxrConvertRejectsZeroOutLen(t *testing.T) {
	s := NewSoxr()
	_, err := s.Convert(make([]float32, 32), 0)
	assert.Error(t, err)
}

func TestSoxrConvertUpsamples(t *testing.T) {
	s := NewSoxr()
	src := make([]float32, 32)
	for i := range src {
		src[i] = float32(i%2)*2 - 1
	}

	out, err := s.Convert(src, 128)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
