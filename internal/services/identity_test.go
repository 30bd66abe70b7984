package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingLookup struct {
	identities map[string]string
	err        error
	calls      int
}

func (l *countingLookup) ResolveAnonymized(_ context.Context, anonymizedID string) (string, bool, error) {
	l.calls++
	if l.err != nil {
		return "", false, l.err
	}
	identity, ok := l.identities[anonymizedID]
	return identity, ok, nil
}

func TestNormalizeIdentity(t *testing.T) {
	tests := map[string]string{
		" @Alice ": "@alice",
		"@@bob":    "@bob",
		"12345":    "12345",
		"@":        "",
		"   ":      "",
	}

	for raw, expected := range tests {
		assert.Equal(t, expected, NormalizeIdentity(raw), raw)
	}
}

func TestIsAnonymizedID(t *testing.T) {
	assert.True(t, IsAnonymizedID("123456"))
	assert.False(t, IsAnonymizedID("@alice"))
	assert.False(t, IsAnonymizedID("12a"))
	assert.False(t, IsAnonymizedID(""))
}

func TestIdentityResolver_DirectAllowlist(t *testing.T) {
	lookup := &countingLookup{}
	resolver := NewIdentityResolver([]string{"@Alice", "555"}, lookup, zap.NewNop().Sugar())

	identity, ok := resolver.Resolve(context.Background(), "@alice")
	assert.True(t, ok)
	assert.Equal(t, "@alice", identity)

	identity, ok = resolver.Resolve(context.Background(), "555")
	assert.True(t, ok)
	assert.Equal(t, "555", identity)

	_, ok = resolver.Resolve(context.Background(), "@mallory")
	assert.False(t, ok)
	assert.Equal(t, 0, lookup.calls)
}

func TestIdentityResolver_CachesResolvedAnonymizedIDs(t *testing.T) {
	lookup := &countingLookup{identities: map[string]string{"42": "@Bob"}}
	resolver := NewIdentityResolver([]string{"@bob"}, lookup, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		identity, ok := resolver.Resolve(context.Background(), "42")
		assert.True(t, ok)
		assert.Equal(t, "@bob", identity)
	}

	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, 1, resolver.CachedCount())
}

func TestIdentityResolver_DoesNotCacheMisses(t *testing.T) {
	lookup := &countingLookup{err: errors.New("rate limited")}
	resolver := NewIdentityResolver([]string{"@bob"}, lookup, zap.NewNop().Sugar())

	_, ok := resolver.Resolve(context.Background(), "42")
	assert.False(t, ok)
	_, ok = resolver.Resolve(context.Background(), "42")
	assert.False(t, ok)

	assert.Equal(t, 2, lookup.calls)
	assert.Equal(t, 0, resolver.CachedCount())
}
