package ratelimit

import (
	"fmt"
	"strings"
)

// KeyForClient builds a limiter key for a client address within a scope.
func KeyForClient(scope Scope, clientIP string) string {
	clientIP = strings.TrimSpace(clientIP)
	if scope == "" || clientIP == "" {
		return ""
	}
	return fmt.Sprintf("ip:%s:%s", scope, clientIP)
}
