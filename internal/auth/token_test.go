package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	role := domain.StaffRoleTechnician

	token, exp, err := tm.GenerateToken("staff-1", domain.SubjectTypeStaff, &role)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, claims.Subject)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.StaffRoleTechnician, *claims.Role)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenManager("one", 15).GenerateToken("user-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("two", 15).ParseToken(token)
	assert.Error(t, err)

	_, err = NewTokenManager("one", 15).ParseToken(token + "x")
	assert.Error(t, err)
}

func TestPrincipalActorName(t *testing.T) {
	var nobody *Principal
	assert.Equal(t, domain.ActorSystem, nobody.ActorName())
	assert.Nil(t, nobody.CustomerID())

	staff := &Principal{SubjectType: domain.SubjectTypeStaff, Staff: &domain.StaffMember{Name: "Nadia"}}
	assert.Equal(t, "Nadia", staff.ActorName())
	assert.Nil(t, staff.CustomerID())

	customer := &Principal{SubjectType: domain.SubjectTypeUser, User: &domain.User{ID: "u1", Name: "Rahim"}}
	assert.Equal(t, "Rahim", customer.ActorName())
	require.NotNil(t, customer.CustomerID())
	assert.Equal(t, "u1", *customer.CustomerID())
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("secret123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hashed, "secret123"))
	assert.Error(t, ComparePassword(hashed, "secret124"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret123"))
	assert.ErrorIs(t, ValidatePassword("abc1"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("onlyletters"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("12345678"), ErrWeakPassword)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	issued := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, exp, err := tm.GenerateToken("user-1", domain.SubjectTypeUser, nil)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(5*time.Minute), exp)

	_, err = tm.ParseToken(token)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(10 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}
