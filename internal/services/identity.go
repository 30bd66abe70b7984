package services

import (
	"context"
	"strings"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// NormalizeIdentity lowercases and trims a voter reference. Usernames keep a
// single leading '@'.
func NormalizeIdentity(raw string) string {
	identity := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(identity, "@") {
		identity = "@" + strings.TrimLeft(identity, "@")
		if identity == "@" {
			return ""
		}
	}
	return identity
}

// IsAnonymizedID reports whether the reference is the platform's opaque
// numeric form rather than a username.
func IsAnonymizedID(identity string) bool {
	if identity == "" {
		return false
	}
	for _, r := range identity {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type IdentityResolver struct {
	allowlist map[string]struct{}
	lookup    IdentityLookup
	resolved  *cache.Cache
	logger    *zap.SugaredLogger
}

// NewIdentityResolver caches successful lookups for the lifetime of the
// process. The allowlist is small and fixed, so the cache is never evicted.
func NewIdentityResolver(allowlist []string, lookup IdentityLookup, logger *zap.SugaredLogger) *IdentityResolver {
	set := make(map[string]struct{}, len(allowlist))
	for _, entry := range allowlist {
		if identity := NormalizeIdentity(entry); identity != "" {
			set[identity] = struct{}{}
		}
	}

	return &IdentityResolver{
		allowlist: set,
		lookup:    lookup,
		resolved:  cache.New(cache.NoExpiration, 0),
		logger:    logger,
	}
}

func (r *IdentityResolver) IsAllowlisted(identity string) bool {
	_, ok := r.allowlist[NormalizeIdentity(identity)]
	return ok
}

// Resolve returns the allowlisted identity behind voterRef. The second
// result is false when the voter is not allowed to vote.
func (r *IdentityResolver) Resolve(ctx context.Context, voterRef string) (string, bool) {
	identity := NormalizeIdentity(voterRef)
	if identity == "" {
		return "", false
	}
	if r.IsAllowlisted(identity) {
		return identity, true
	}
	if r.lookup == nil || !IsAnonymizedID(identity) {
		return identity, false
	}

	if cached, found := r.resolved.Get(identity); found {
		resolved := cached.(string)
		return resolved, r.IsAllowlisted(resolved)
	}

	resolved, ok, err := r.lookup.ResolveAnonymized(ctx, identity)
	if err != nil {
		r.logger.Warnw("failed to resolve anonymized voter", "voter", identity, "error", err)
		return identity, false
	}
	if !ok {
		return identity, false
	}

	resolved = NormalizeIdentity(resolved)
	if resolved == "" {
		return identity, false
	}
	r.resolved.Set(identity, resolved, cache.NoExpiration)

	return resolved, r.IsAllowlisted(resolved)
}

func (r *IdentityResolver) CachedCount() int {
	return r.resolved.ItemCount()
}
