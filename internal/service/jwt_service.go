package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// JWTService emite y valida los tokens de sesión.
type JWTService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	denylist TokenDenylist
	now      func() time.Time
}

// SessionToken es el token firmado junto con su vencimiento.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTRevoked = errors.New("jwt revoked")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &JWTService{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   "marinova",
		denylist: NewMemoryTokenDenylist(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func NewJWTServiceWithDenylist(secret string, ttl time.Duration, denylist TokenDenylist) *JWTService {
	svc := NewJWTService(secret, ttl)
	if denylist != nil {
		svc.denylist = denylist
	}
	return svc
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue firma un token nuevo para el usuario; cada token lleva su propio jti.
func (s *JWTService) Issue(userID string) (SessionToken, error) {
	if len(s.secret) == 0 || strings.TrimSpace(userID) == "" {
		return SessionToken{}, ErrJWTInvalid
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Parse valida firma, vencimiento, emisor y denylist.
func (s *JWTService) Parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if claims.ID != "" && s.denylist != nil {
		// Si el denylist no responde se acepta el token: la firma y el vencimiento ya se validaron.
		revoked, err := s.denylist.IsRevoked(claims.ID)
		if err == nil && revoked {
			return Claims{}, ErrJWTRevoked
		}
	}
	return claims, nil
}

// Revoke agrega el jti al denylist por el tiempo de vida que le queda al token.
func (s *JWTService) Revoke(claims Claims) error {
	if claims.ID == "" {
		return ErrJWTInvalid
	}
	if s.denylist == nil || claims.ExpiresAt == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.denylist.Revoke(claims.ID, remaining)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
