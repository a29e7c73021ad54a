package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/kai426/Dignus-sub001/domain"
)

// CodeGeneratorImpl implements domain.CodeGenerator with crypto/rand
type CodeGeneratorImpl struct {
	length int
	max    *big.Int
}

// NewCodeGenerator creates a generator of zero-padded numeric codes.
// Every value in [0, 10^length) is equally likely.
func NewCodeGenerator(length int) domain.CodeGenerator {
	if length <= 0 {
		length = 6
	}
	return &CodeGeneratorImpl{
		length: length,
		max:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil),
	}
}

// Generate implements domain.CodeGenerator
func (g *CodeGeneratorImpl) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.max)
	if err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}
	return fmt.Sprintf("%0*d", g.length, n), nil
}
