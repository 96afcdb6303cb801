// Package service implements the authentication flows: passphrase login
// for members, credential login for admins, and the signed-token codec
// both gates verify.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/store"
)

var (
	ErrInvalidPassphrase  = errors.New("invalid passphrase")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

const (
	// memberTokenSlack is the registered-claims ttl on member tokens. It is
	// deliberately looser than the embedded validUntil, which is the
	// authoritative expiry and is re-checked on every request.
	memberTokenSlack = 30 * 24 * time.Hour

	// AdminTokenTTL is the lifetime of an admin session token.
	AdminTokenTTL = 24 * time.Hour
)

// MemberClaims is the payload of a member session token. ValidUntil holds
// the real expiry (last instant of the login month) as an RFC 3339 string.
type MemberClaims struct {
	Authenticated bool   `json:"authenticated"`
	ValidUntil    string `json:"validUntil"`
	jwt.RegisteredClaims
}

// AdminClaims is the payload of an admin session token.
type AdminClaims struct {
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// AuthService verifies passphrases and admin credentials and signs and
// verifies session tokens with a process-wide HS256 secret.
type AuthService struct {
	store  *store.Store
	secret []byte

	// Clock supplies the current time; tests pin it.
	Clock func() time.Time
}

// NewAuthService creates an AuthService backed by st.
func NewAuthService(st *store.Store, secret string) *AuthService {
	return &AuthService{
		store:  st,
		secret: []byte(secret),
		Clock:  time.Now,
	}
}

// EndOfMonth returns the last instant (23:59:59) of t's calendar month,
// in t's location.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 23, 59, 59, 0, t.Location())
}

// LoginWithPassphrase validates phrase against the record for the current
// calendar month and, on a match, issues a member token valid until the end
// of the month and records a session audit row. The match is exact:
// case-sensitive, untrimmed.
func (s *AuthService) LoginWithPassphrase(ctx context.Context, phrase string) (token string, validUntil time.Time, err error) {
	now := s.Clock()

	_, err = s.store.FindPassPhrase(ctx, phrase, int(now.Month()), now.Year())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, ErrInvalidPassphrase
		}
		return "", time.Time{}, fmt.Errorf("lookup passphrase: %w", err)
	}

	validUntil = EndOfMonth(now)
	token, err = s.IssueMemberToken(validUntil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue member token: %w", err)
	}

	sess := &model.Session{Token: token, ValidUntil: validUntil}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", time.Time{}, fmt.Errorf("record session: %w", err)
	}
	return token, validUntil, nil
}

// IssueMemberToken signs a member token embedding validUntil. The
// registered expiry is issue time plus 30 days; callers must treat the
// embedded validUntil as authoritative.
func (s *AuthService) IssueMemberToken(validUntil time.Time) (string, error) {
	now := s.Clock()
	claims := MemberClaims{
		Authenticated: true,
		ValidUntil:    validUntil.Format(time.RFC3339),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(memberTokenSlack)),
			Issuer:    "membergate",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyMemberToken checks the signature and registered claims of a member
// token and returns the embedded validity. It does not apply the validUntil
// cutoff; CheckMemberToken does.
func (s *AuthService) VerifyMemberToken(tokenStr string) (*MemberClaims, error) {
	claims := &MemberClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc,
		jwt.WithTimeFunc(func() time.Time { return s.Clock() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Authenticated {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckMemberToken verifies a member token and applies the embedded
// validUntil cutoff against the current wall-clock time. Strictly after
// validUntil counts as expired; equality is still valid.
func (s *AuthService) CheckMemberToken(tokenStr string) (validUntil time.Time, err error) {
	claims, err := s.VerifyMemberToken(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	validUntil, err = time.Parse(time.RFC3339, claims.ValidUntil)
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if s.Clock().After(validUntil) {
		return time.Time{}, ErrTokenExpired
	}
	return validUntil, nil
}

// LoginAdmin validates an email/password pair and issues an admin token.
// An unknown email and a wrong password are indistinguishable to callers.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*model.Admin, string, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueAdminToken(admin)
	if err != nil {
		return nil, "", fmt.Errorf("issue admin token: %w", err)
	}
	return admin, token, nil
}

// IssueAdminToken signs a 24-hour admin token for the given admin.
func (s *AuthService) IssueAdminToken(admin *model.Admin) (string, error) {
	now := s.Clock()
	claims := AdminClaims{
		AdminID: admin.ID,
		Email:   admin.Email,
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AdminTokenTTL)),
			Issuer:    "membergate",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyAdminToken checks an admin token and requires the isAdmin claim.
func (s *AuthService) VerifyAdminToken(tokenStr string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc,
		jwt.WithTimeFunc(func() time.Time { return s.Clock() }))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.IsAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// keyFunc rejects any signing method other than the HMAC family used to
// sign, preventing algorithm confusion.
func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.secret, nil
}

// HashPassword hashes an admin password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
