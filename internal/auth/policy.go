package auth

import (
	"net/http"
	"strings"
)

// Policy decides which requests need auth and which role they require.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Rule
// administration needs operator, reading configuration and running
// inference needs viewer, normalization itself needs operator.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/normalize" || path == "/api/v1/normalize/report":
		return RoleOperator, true
	case path == "/api/v1/rules" && method == http.MethodPost:
		return RoleOperator, true
	case path == "/api/v1/rules" || strings.HasPrefix(path, "/api/v1/rules/"):
		return RoleViewer, true
	case path == "/api/v1/schema/infer":
		return RoleViewer, true
	}
	return "", false
}
