package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSettingsIssueAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}

	key, err := us.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.NotEmpty(t, us.APIKeyHash)
	assert.NotEmpty(t, us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
	assert.True(t, us.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)
}

func TestUserSettingsRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 99}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()

	assert.False(t, us.HasActiveAPIKey())
	assert.Equal(t, "", us.APIKeyHash)
	assert.Equal(t, "", us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyRevokedAt)
}

func TestFindTokenPack(t *testing.T) {
	pack, ok := FindTokenPack("starter")
	require.True(t, ok)
	assert.Equal(t, int64(5000), pack.Tokens)

	_, ok = FindTokenPack("does-not-exist")
	assert.False(t, ok)
}

func TestPurchaseIsTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		PurchaseStatusPending:  false,
		PurchaseStatusCaptured: false,
		PurchaseStatusCredited: true,
		PurchaseStatusFailed:   true,
		PurchaseStatusCanceled: true,
	} {
		p := &Purchase{Status: status}
		assert.Equal(t, terminal, p.IsTerminal(), "status %q", status)
	}
}
