package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equihome/launchpad/internal/domain"
)

func TestAllowlist(t *testing.T) {
	a, err := NewAllowlist([]Grant{
		{Email: " Partner@Fund.com ", Resources: []domain.RequestType{domain.RequestDealRoom}},
		{Email: "founder@equihome.com.au"},
	})
	require.NoError(t, err)

	assert.True(t, a.Allows("partner@fund.com", domain.RequestDealRoom))
	assert.False(t, a.Allows("partner@fund.com", domain.RequestTechDemo))
	for _, rt := range domain.RequestTypes {
		assert.True(t, a.Allows("FOUNDER@equihome.com.au", rt))
	}
	assert.False(t, a.Allows("stranger@x.com", domain.RequestDealRoom))

	grants := a.Grants()
	require.Len(t, grants, 2)
	assert.Equal(t, "founder@equihome.com.au", grants[0].Email)
	assert.Len(t, grants[0].Resources, 3)
	assert.Equal(t, 2, a.Len())
}

func TestAllowlist_RejectsBadEntries(t *testing.T) {
	_, err := NewAllowlist([]Grant{{Email: ""}})
	assert.Error(t, err)

	_, err = NewAllowlist([]Grant{{Email: "a@b.com", Resources: []domain.RequestType{"vault"}}})
	assert.True(t, domain.IsValidation(err))
}

func TestAllowlist_NilAllowsNothing(t *testing.T) {
	var a *Allowlist
	assert.False(t, a.Allows("a@b.com", domain.RequestDealRoom))
	assert.Empty(t, a.Grants())
}
