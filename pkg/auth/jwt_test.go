package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("s3cret", "conference-api")

	token, err := svc.GenerateToken("R1", RoleReviewer, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "R1", claims.Subject)
	assert.Equal(t, RoleReviewer, claims.Role)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("s3cret", "conference-api")

	expired, err := svc.GenerateToken("R1", RoleReviewer, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewJWTService("other", "conference-api").GenerateToken("R1", RoleChair, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTService("s3cret", "elsewhere").GenerateToken("R1", RoleChair, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
