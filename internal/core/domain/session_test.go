package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccess_Err(t *testing.T) {
	assert.NoError(t, AccessAllowed.Err())
	assert.ErrorIs(t, AccessNotFound.Err(), ErrSessionNotFound)
	assert.ErrorIs(t, AccessForbidden.Err(), ErrForbidden)
	assert.ErrorIs(t, Access(99).Err(), ErrForbidden)
}

func TestAccess_String(t *testing.T) {
	assert.Equal(t, "allowed", AccessAllowed.String())
	assert.Equal(t, "not_found", AccessNotFound.String())
	assert.Equal(t, "forbidden", AccessForbidden.String())
}

func TestSender_IsValid(t *testing.T) {
	assert.True(t, SenderUser.IsValid())
	assert.True(t, SenderAssistant.IsValid())
	assert.Equal(t, "AI", string(SenderAssistant))
	assert.False(t, Sender("system").IsValid())
}
