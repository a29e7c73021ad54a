package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kai426/Dignus-sub001/internal/config"
)

// maxRuleBody bounds how much of a JSON body the adapter buffers
const maxRuleBody = 1 << 20

// GinContextAdapter adapts Gin context to config.RequestContext
type GinContextAdapter struct {
	ctx      *gin.Context
	bodyData map[string]interface{}
}

// NewGinContextAdapter creates a new adapter for Gin context
func NewGinContextAdapter(ctx *gin.Context) (*GinContextAdapter, error) {
	adapter := &GinContextAdapter{ctx: ctx}
	if err := adapter.parseBody(); err != nil {
		return nil, fmt.Errorf("failed to parse request body: %w", err)
	}
	return adapter, nil
}

// GetPathParam retrieves a path parameter
func (g *GinContextAdapter) GetPathParam(name string) string {
	return g.ctx.Param(name)
}

// GetQueryParam retrieves a query parameter
func (g *GinContextAdapter) GetQueryParam(name string) string {
	return g.ctx.Query(name)
}

// GetHeader retrieves a header value
func (g *GinContextAdapter) GetHeader(name string) string {
	return g.ctx.GetHeader(name)
}

// GetBodyField retrieves a field from the JSON body, with dot notation for nested fields
func (g *GinContextAdapter) GetBodyField(name string) (interface{}, error) {
	if g.bodyData == nil {
		return nil, fmt.Errorf("no body data parsed")
	}
	result := extractNestedField(g.bodyData, name)
	if result == nil {
		return nil, fmt.Errorf("field '%s' not found", name)
	}
	return result, nil
}

// parseBody reads a JSON body and restores it for the handler. Other content
// types, multipart uploads included, are left unread.
func (g *GinContextAdapter) parseBody() error {
	if g.ctx.Request.Body == nil || !strings.HasPrefix(g.ctx.ContentType(), "application/json") {
		return nil
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(g.ctx.Request.Body, maxRuleBody))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	g.ctx.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	if len(bodyBytes) == 0 {
		return nil
	}
	var bodyData map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &bodyData); err != nil {
		// malformed JSON is reported by the handler's binding
		return nil
	}
	g.bodyData = bodyData
	return nil
}

func extractNestedField(data map[string]interface{}, fieldPath string) interface{} {
	current := data
	parts := strings.Split(fieldPath, ".")
	for i, part := range parts {
		value, exists := current[part]
		if !exists {
			return nil
		}
		if i == len(parts)-1 {
			return value
		}
		nested, ok := value.(map[string]interface{})
		if !ok {
			return nil
		}
		current = nested
	}
	return nil
}

// ValidationEngine handles validation rule execution
type ValidationEngine struct {
	rules []config.ValidationRule
}

// NewValidationEngine creates a new validation engine with rules
func NewValidationEngine(rules []config.ValidationRule) *ValidationEngine {
	return &ValidationEngine{rules: rules}
}

// ValidateRequest validates a request against the rules bound to its route pattern
func (ve *ValidationEngine) ValidateRequest(ctx *gin.Context, tokenClaims map[string]interface{}) error {
	matchingRules := ve.findMatchingRules(ctx.Request.Method, ctx.FullPath())
	if len(matchingRules) == 0 {
		return nil
	}

	adapter, err := NewGinContextAdapter(ctx)
	if err != nil {
		return fmt.Errorf("failed to create context adapter: %w", err)
	}

	for _, rule := range matchingRules {
		valid, err := rule.Validate(adapter, tokenClaims)
		if err != nil {
			return fmt.Errorf("validation error for rule '%s': %w", rule.Name, err)
		}
		if !valid {
			return fmt.Errorf("validation failed for rule '%s': %s", rule.Name, rule.Description)
		}
	}
	return nil
}

func (ve *ValidationEngine) findMatchingRules(method, path string) []config.ValidationRule {
	var matching []config.ValidationRule
	for _, rule := range ve.rules {
		if rule.Method == method && rule.Path == path {
			matching = append(matching, rule)
		}
	}
	return matching
}
