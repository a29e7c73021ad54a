package config

import (
	"fmt"
	"strconv"
)

// FieldSource names where a value is read from: "path", "query", "header", "body" or "token"
type FieldSource struct {
	Source string `yaml:"source"`
	Name   string `yaml:"name"`
}

// ValidationCondition compares one request value with one token claim
type ValidationCondition struct {
	RequestField FieldSource `yaml:"requestField"`
	TokenField   FieldSource `yaml:"tokenField"`
	Operator     string      `yaml:"operator"` // "equals", "notEquals", "in", "exists"
	Description  string      `yaml:"description,omitempty"`
}

// ValidationRule binds conditions to a route. Candidate routes use it to
// require that ids in the request belong to the caller.
type ValidationRule struct {
	Name        string                `yaml:"name"`
	Method      string                `yaml:"method"`
	Path        string                `yaml:"path"`
	Description string                `yaml:"description,omitempty"`
	Logic       string                `yaml:"logic"` // "all" or "any"
	Conditions  []ValidationCondition `yaml:"conditions"`
	Enabled     bool                  `yaml:"enabled"`
}

// RequestContext exposes the parts of a request rules can read
type RequestContext interface {
	GetPathParam(name string) string
	GetQueryParam(name string) string
	GetHeader(name string) string
	GetBodyField(name string) (interface{}, error)
}

// ExtractValue reads the value named by fs from the request or the token claims
func (fs FieldSource) ExtractValue(c RequestContext, tokenClaims map[string]interface{}) (interface{}, error) {
	switch fs.Source {
	case "path":
		return c.GetPathParam(fs.Name), nil
	case "query":
		return c.GetQueryParam(fs.Name), nil
	case "header":
		return c.GetHeader(fs.Name), nil
	case "body":
		return c.GetBodyField(fs.Name)
	case "token":
		if claim, exists := tokenClaims[fs.Name]; exists {
			return claim, nil
		}
		return nil, fmt.Errorf("token claim '%s' not found", fs.Name)
	default:
		return nil, fmt.Errorf("unsupported field source: %s", fs.Source)
	}
}

// CompareValues applies the condition operator
func (vc ValidationCondition) CompareValues(reqValue, tokenValue interface{}) (bool, error) {
	switch vc.Operator {
	case "equals":
		return compareEquals(reqValue, tokenValue), nil
	case "notEquals":
		return !compareEquals(reqValue, tokenValue), nil
	case "in":
		return compareIn(reqValue, tokenValue), nil
	case "exists":
		return reqValue != nil && reqValue != "", nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", vc.Operator)
	}
}

// Validate evaluates the rule conditions. Disabled rules and rules without
// conditions pass.
func (vr ValidationRule) Validate(c RequestContext, tokenClaims map[string]interface{}) (bool, error) {
	if !vr.Enabled || len(vr.Conditions) == 0 {
		return true, nil
	}

	results := make([]bool, len(vr.Conditions))
	for i, condition := range vr.Conditions {
		reqValue, err := condition.RequestField.ExtractValue(c, tokenClaims)
		if err != nil {
			return false, fmt.Errorf("failed to extract request field %s.%s: %w",
				condition.RequestField.Source, condition.RequestField.Name, err)
		}
		tokenValue, err := condition.TokenField.ExtractValue(c, tokenClaims)
		if err != nil {
			return false, fmt.Errorf("failed to extract token field %s.%s: %w",
				condition.TokenField.Source, condition.TokenField.Name, err)
		}
		match, err := condition.CompareValues(reqValue, tokenValue)
		if err != nil {
			return false, fmt.Errorf("comparison failed for condition %d: %w", i, err)
		}
		results[i] = match
	}

	switch vr.Logic {
	case "any", "or":
		for _, result := range results {
			if result {
				return true, nil
			}
		}
		return false, nil
	case "all", "and", "":
		for _, result := range results {
			if !result {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported logic operator: %s", vr.Logic)
	}
}

// compareEquals compares the printed forms, so a JSON number 42 equals the claim "42"
func compareEquals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	return stringify(a) == stringify(b)
}

// stringify prints JSON numbers without exponents
func stringify(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func compareIn(needle, haystack interface{}) bool {
	if needle == nil || haystack == nil {
		return false
	}
	needleStr := stringify(needle)
	switch h := haystack.(type) {
	case []interface{}:
		for _, item := range h {
			if stringify(item) == needleStr {
				return true
			}
		}
	case []string:
		for _, item := range h {
			if item == needleStr {
				return true
			}
		}
	}
	return false
}
