package membership

import (
	"code-lottery-go/internal/models"

	"go.uber.org/zap"
)

// Decision methods.
const (
	MethodSkipped         = "skipped"
	MethodNoTargets       = "no_targets"
	MethodSessionOrigin   = "session_origin"
	MethodOriginNotTarget = "origin_not_target"
	MethodCache           = "cache"
	MethodNotMember       = "not_member"
)

// Verifier decides whether a user may register or draw.
type Verifier struct {
	cache *Cache
	skip  bool
}

func NewVerifier(cache *Cache, skip bool) *Verifier {
	return &Verifier{cache: cache, skip: skip}
}

// Check evaluates user. originGroup is the group the request came from, or
// empty for a private session. A present origin is authoritative: it must be
// a target group and it refreshes the cache. Otherwise the cache is consulted.
func (v *Verifier) Check(user, originGroup string) models.VerifyDecision {
	if v.skip {
		return models.VerifyDecision{Allowed: true, Method: MethodSkipped}
	}

	targets := v.cache.Targets()
	if len(targets) == 0 {
		return models.VerifyDecision{Allowed: true, Method: MethodNoTargets}
	}

	if originGroup != "" {
		if !v.cache.IsTarget(originGroup) {
			zap.L().Info("Membership denied, origin is not a target group",
				zap.String("user_id", user), zap.String("group", originGroup))
			return models.VerifyDecision{Method: MethodOriginNotTarget, Group: originGroup}
		}
		v.cache.Observe(originGroup, user)
		return models.VerifyDecision{Allowed: true, Method: MethodSessionOrigin, Group: originGroup}
	}

	if group, ok := v.cache.IsMemberOfAny(targets, user); ok {
		return models.VerifyDecision{Allowed: true, Method: MethodCache, Group: group}
	}

	zap.L().Info("Membership denied, no recent activity in target groups", zap.String("user_id", user))
	return models.VerifyDecision{Method: MethodNotMember}
}
