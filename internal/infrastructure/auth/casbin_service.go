package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// DefaultPolicies are seeded when the policy table is empty
var DefaultPolicies = [][]string{
	{"role_candidate", "/tests*", "(GET)|(POST)"},
	{"role_admin", "/admin/*", "(GET)|(POST)|(PUT)|(DELETE)"},
	{"role_admin", "/tests*", "GET"},
}

// NewCasbinEnforcer builds an enforcer backed by the gorm adapter and loads stored policies
func NewCasbinEnforcer(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}
	e, err := casbin.NewEnforcer(modelPath, adp)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policies: %w", err)
	}
	if err := seedPolicies(e); err != nil {
		return nil, err
	}
	return e, nil
}

// NewInMemoryEnforcer builds an enforcer from model text without persistence
func NewInMemoryEnforcer(modelText string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := seedPolicies(e); err != nil {
		return nil, err
	}
	return e, nil
}

func seedPolicies(e *casbin.Enforcer) error {
	existing, err := e.GetPolicy()
	if err != nil {
		return fmt.Errorf("failed to read casbin policies: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range DefaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("failed to seed casbin policy: %w", err)
		}
	}
	return nil
}

// RBACModel is the request/policy model used by route authorization
const RBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`
