package ratelimit

import (
	"strings"

	"github.com/duskwallet/duskwallet-api/internal/config"
)

const authPathPrefix = "/api/auth"

// ResolvePolicies returns the limits that apply to a request path, in check order.
// Health probes on "/" and "/api" are never limited; auth routes get both limits.
func ResolvePolicies(path string, cfg config.RateLimitConfig) []Policy {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" || trimmed == "/api" {
		return nil
	}
	policies := make([]Policy, 0, 2)
	if cfg.General > 0 {
		policies = append(policies, Policy{Scope: ScopeGeneral, Limit: cfg.General, Window: cfg.Window})
	}
	if cfg.Auth > 0 && (trimmed == authPathPrefix || strings.HasPrefix(trimmed, authPathPrefix+"/")) {
		policies = append(policies, Policy{Scope: ScopeAuth, Limit: cfg.Auth, Window: cfg.Window})
	}
	return policies
}
