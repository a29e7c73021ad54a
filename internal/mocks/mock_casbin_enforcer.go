package mocks

import (
	"regexp"
	"strings"

	"github.com/kai426/Dignus-sub001/domain"
)

// MockCasbinEnforcer implements the CasbinEnforcer interface for testing.
// Resources ending in "*" match by prefix and actions are regular expressions.
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
	SavePolicyFunc   func() error
	policies         [][]string
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer creates a new MockCasbinEnforcer with the default route policies
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		policies: [][]string{
			{"role_candidate", "/tests*", "(GET)|(POST)"},
			{"role_admin", "/admin/*", "(GET)|(POST)|(PUT)|(DELETE)"},
			{"role_admin", "/tests*", "GET"},
		},
	}
}

func toPolicy(params []interface{}) []string {
	policy := make([]string, 0, len(params))
	for _, p := range params {
		if s, ok := p.(string); ok {
			policy = append(policy, s)
		}
	}
	return policy
}

func samePolicy(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddPolicy adds a new policy rule
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	policy := toPolicy(params)
	if len(policy) < 3 {
		return false, nil
	}
	for _, existing := range m.policies {
		if samePolicy(existing, policy) {
			return false, nil
		}
	}
	m.policies = append(m.policies, policy)
	return true, nil
}

// RemovePolicy removes a policy rule
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}
	target := toPolicy(params)
	for i, policy := range m.policies {
		if samePolicy(policy, target) {
			m.policies = append(m.policies[:i], m.policies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Enforce checks if a request should be allowed
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	req := toPolicy(rvals)
	if len(req) < 3 {
		return false, nil
	}
	for _, p := range m.policies {
		if len(p) < 3 || p[0] != req[0] {
			continue
		}
		if !resourceMatch(req[1], p[1]) {
			continue
		}
		if ok, _ := regexp.MatchString("^(?:"+p[2]+")$", req[2]); ok {
			return true, nil
		}
	}
	return false, nil
}

func resourceMatch(resource, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(resource, strings.TrimSuffix(pattern, "*"))
	}
	return resource == pattern
}

// GetPolicy returns all policies
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	result := make([][]string, len(m.policies))
	for i, policy := range m.policies {
		result[i] = append([]string(nil), policy...)
	}
	return result, nil
}

// SavePolicy saves all policies
func (m *MockCasbinEnforcer) SavePolicy() error {
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}
	return nil
}

// SetPolicies sets the internal policies (test helper)
func (m *MockCasbinEnforcer) SetPolicies(policies [][]string) {
	m.policies = make([][]string, len(policies))
	for i, policy := range policies {
		m.policies[i] = append([]string(nil), policy...)
	}
}
