// Package token signs and verifies the compact tokens that carry a session.
// Two independent secret pairs exist, one per role class, so an admin token
// can never verify against the standard secrets and vice versa.  The secret
// pair is the only thing separating the two privilege tiers; claims carry no
// role information.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/userstack/auth-service/internal/config"
	"github.com/userstack/auth-service/internal/model"
)

var (
	// ErrTokenInvalid covers signature mismatches, malformed tokens and
	// tokens signed under a different secret.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the expiry claim is in the past.
	ErrTokenExpired = errors.New("token is expired")
)

// Auxiliary token_type values for single-purpose tokens.
const (
	TypeEmailVerification = "email-verification"
	TypePasswordReset     = "password-reset"
)

// RoleClass selects which secret pair signs a session.  It is a closed
// enumeration resolved once from the user's role name; call sites never
// branch on role strings.
type RoleClass int

const (
	RoleStandard RoleClass = iota
	RoleAdmin
)

// ClassForRole maps a stored role name onto its secret class.  Unknown
// roles fall back to the standard class, never to admin.
func ClassForRole(name string) RoleClass {
	if name == model.RoleAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

// SecretPair holds the signing keys for one role class.
type SecretPair struct {
	Access  []byte
	Refresh []byte
}

// Claims is the payload carried by every issued token.  Subject holds the
// user id, issuer and audience both hold the configured site identifier.
type Claims struct {
	TokenType    string `json:"token_type,omitempty"` // set on single-purpose tokens only
	TokenVersion uint64 `json:"tv,omitempty"`         // user's token version at issue time
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a numeric user id.
func (c Claims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// Pair is the ephemeral access/refresh token pair returned by login,
// register and refresh.  The refresh token is additionally persisted on the
// user record so it can be invalidated by overwrite or logout.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Codec issues and verifies tokens.  It is constructed once from the
// immutable configuration and shared across requests; it holds no mutable
// state.
type Codec struct {
	standard     SecretPair
	admin        SecretPair
	verification []byte

	siteTitle       string
	accessTTL       time.Duration
	refreshTTL      time.Duration
	verificationTTL time.Duration

	now func() time.Time // injectable clock for tests
}

// NewCodec resolves the four session secrets plus the verification secret
// from configuration.
func NewCodec(cfg config.Config) *Codec {
	return &Codec{
		standard: SecretPair{
			Access:  []byte(cfg.AccessTokenSecret),
			Refresh: []byte(cfg.RefreshTokenSecret),
		},
		admin: SecretPair{
			Access:  []byte(cfg.AdminAccessTokenSecret),
			Refresh: []byte(cfg.AdminRefreshTokenSecret),
		},
		verification:    []byte(cfg.EmailVerificationSecret),
		siteTitle:       cfg.SiteTitle,
		accessTTL:       time.Duration(cfg.AccessTTLDays) * 24 * time.Hour,
		refreshTTL:      time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		verificationTTL: time.Duration(cfg.EmailVerificationTTLMin) * time.Minute,
		now:             time.Now,
	}
}

// PairFor returns the secret pair for a role class.
func (c *Codec) PairFor(class RoleClass) SecretPair {
	if class == RoleAdmin {
		return c.admin
	}
	return c.standard
}

// Issue builds a signed HS256 token for the given subject expiring at the
// absolute time expiresAt.  Issuer and audience are both set to the site
// identifier; aux carries any optional claims (token type, token version).
func (c *Codec) Issue(userID uint64, expiresAt time.Time, secret []byte, aux Claims) (string, error) {
	aux.Subject = strconv.FormatUint(userID, 10)
	aux.ExpiresAt = jwt.NewNumericDate(expiresAt)
	aux.IssuedAt = jwt.NewNumericDate(c.now().UTC())
	aux.Issuer = c.siteTitle
	aux.Audience = jwt.ClaimStrings{c.siteTitle}
	// iat has one-second precision; the jti keeps back-to-back issues for
	// the same subject from serializing to the same token.
	aux.ID = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, aux)
	return t.SignedString(secret)
}

// Verify checks the signature and expiry of a token against the given
// secret and returns its claims.  A token signed under any other secret
// fails with ErrTokenInvalid; a well-signed but expired token fails with
// ErrTokenExpired.
func (c *Codec) Verify(tokenStr string, secret []byte) (Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !t.Valid {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// IssueAuthPair generates the access/refresh pair for a user, selecting the
// secret pair by role class.  The user's current token version is embedded
// so that a later version bump cuts off refresh.
func (c *Codec) IssueAuthPair(userID uint64, class RoleClass, tokenVersion uint64) (Pair, error) {
	pair := c.PairFor(class)
	nowUTC := c.now().UTC()

	access, err := c.Issue(userID, nowUTC.Add(c.accessTTL), pair.Access, Claims{TokenVersion: tokenVersion})
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Issue(userID, nowUTC.Add(c.refreshTTL), pair.Refresh, Claims{TokenVersion: tokenVersion})
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueVerification builds a short-lived email verification token signed
// with the dedicated verification secret.
func (c *Codec) IssueVerification(userID uint64) (string, error) {
	exp := c.now().UTC().Add(c.verificationTTL)
	return c.Issue(userID, exp, c.verification, Claims{TokenType: TypeEmailVerification})
}

// VerifyVerification checks an email verification token.  A session token
// presented here fails on the token_type claim even if the secrets were
// ever shared.
func (c *Codec) VerifyVerification(tokenStr string) (Claims, error) {
	claims, err := c.Verify(tokenStr, c.verification)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != TypeEmailVerification {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// VerificationTTL exposes the verification token lifetime for use in the
// mail copy ("this link expires in ...").
func (c *Codec) VerificationTTL() time.Duration { return c.verificationTTL }
