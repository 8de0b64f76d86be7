package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeStringIsTotal(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.String())
	assert.Equal(t, "generic error", CodeGeneric.String())
	assert.NotEqual(t, "", Code(9999).String())
	assert.Equal(t, "unknown error", Code(9999).String())
}

func TestCodeImplementsError(t *testing.T) {
	var err error = CodeCantClaimInterface
	assert.EqualError(t, err, "can't claim usb interface")
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrStall.Error(), ErrTimeout.Error())
	assert.NotEqual(t, ErrCancelled.Error(), ErrNoDevice.Error())
}
