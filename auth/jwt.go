package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "typ" claim so one kind cannot stand in for another.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
	KindState   = "oauth_state"
)

var ErrWrongTokenKind = errors.New("wrong token kind")

type Claims struct {
	Role         string `json:"role,omitempty"`
	TokenVersion uint64 `json:"ver"`
	Kind         string `json:"typ"`
	jwt.RegisteredClaims
}

// StaffID returns the staff id stored in the subject claim.
func (c *Claims) StaffID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) GenerateAccessToken(staffID uint64, role string, tokenVersion uint64) (string, error) {
	return m.sign(staffID, role, tokenVersion, KindAccess, m.accessTTL)
}

func (m *TokenManager) GenerateRefreshToken(staffID uint64, tokenVersion uint64) (string, error) {
	return m.sign(staffID, "", tokenVersion, KindRefresh, m.refreshTTL)
}

// GenerateState signs the OAuth state parameter for the YouTube connect flow.
func (m *TokenManager) GenerateState(staffID uint64) (string, error) {
	return m.sign(staffID, "", 0, KindState, 10*time.Minute)
}

// VerifyState checks an OAuth state parameter and returns the staff id it carries.
func (m *TokenManager) VerifyState(state string) (uint64, error) {
	claims, err := m.Verify(state, KindState)
	if err != nil {
		return 0, err
	}
	return claims.StaffID()
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *TokenManager) sign(staffID uint64, role string, version uint64, kind string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Role:         role,
		TokenVersion: version,
		Kind:         kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(staffID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses tokenString and checks its signature, expiry and kind.
func (m *TokenManager) Verify(tokenString, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: got %q", ErrWrongTokenKind, claims.Kind)
	}
	return claims, nil
}
