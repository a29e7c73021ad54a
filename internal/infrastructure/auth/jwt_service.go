package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
)

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey      []byte
	issuer         string
	accessTokenTTL time.Duration
	clock          clockwork.Clock
	entropy        io.Reader
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, accessTTL time.Duration, clock clockwork.Clock) domain.TokenService {
	return &JWTServiceImpl{
		secretKey:      []byte(secretKey),
		issuer:         issuer,
		accessTokenTTL: accessTTL,
		clock:          clock,
		entropy:        rand.Reader,
	}
}

// generateJTI creates a unique JWT ID
func (j *JWTServiceImpl) generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := io.ReadFull(j.entropy, bytes); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// AccessTokenTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTokenTTL() time.Duration {
	return j.accessTokenTTL
}

// GenerateCandidateToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateCandidateToken(candidate *domain.Candidate) (string, error) {
	claims := j.baseClaims(candidate.ID, domain.RoleCandidate)
	claims["cpf"] = candidate.CPF
	claims["email"] = candidate.Email
	claims["lgpd_accepted"] = candidate.LGPDAccepted
	return j.sign(claims)
}

// GenerateAdminToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateAdminToken(admin *domain.Admin, sessionID string) (string, error) {
	role := admin.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	claims := j.baseClaims(admin.ID, role)
	claims["session_id"] = sessionID
	claims["email"] = admin.Email
	return j.sign(claims)
}

func (j *JWTServiceImpl) baseClaims(userID uint, role string) jwt.MapClaims {
	now := j.clock.Now()
	return jwt.MapClaims{
		"sub":     strconv.FormatUint(uint64(userID), 10),
		"user_id": userID,
		"role":    role,
		"iss":     j.issuer,
		"iat":     now.Unix(),
		"exp":     now.Add(j.accessTokenTTL).Unix(),
	}
}

func (j *JWTServiceImpl) sign(claims jwt.MapClaims) (string, error) {
	jti, err := j.generateJTI()
	if err != nil {
		return "", err
	}
	claims["jti"] = jti
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrAccessTokenMalformed
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.clock.Now), jwt.WithIssuer(j.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrAccessTokenExpired
		}
		return nil, domain.ErrAccessTokenInvalid
	}

	if !token.Valid {
		return nil, domain.ErrAccessTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrAccessTokenMalformed
	}

	// Extract claims
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, domain.ErrAccessTokenMalformed
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, domain.ErrAccessTokenMalformed
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, domain.ErrAccessTokenMalformed
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, domain.ErrAccessTokenMalformed
	}

	tokenClaims := &domain.TokenClaims{
		UserID:    uint(userID),
		Role:      role,
		IssuedAt:  int64(iat),
		ExpiresAt: int64(exp),
	}

	if sessionID, ok := claims["session_id"].(string); ok {
		tokenClaims.SessionID = sessionID
	}
	if cpf, ok := claims["cpf"].(string); ok {
		tokenClaims.CPF = cpf
	}
	if email, ok := claims["email"].(string); ok {
		tokenClaims.Email = email
	}
	if accepted, ok := claims["lgpd_accepted"].(bool); ok {
		tokenClaims.LGPDAccepted = accepted
	}

	return tokenClaims, nil
}
