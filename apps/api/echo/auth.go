package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/page"
)

// Role prefixes issued by the platform's auth provider, e.g. "instructor:1234".
const (
	RoleAdmin      = "admin:"
	RoleAcademy    = "academy:"
	RoleInstructor = "instructor:"
	RoleStudent    = "student:"

	tokenContextKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a token valid for conf.Server.JWTExpirationDelta.
func NewClaims(conf *core.Config, id, username, email string, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   id,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: username,
		Email:    email,
		Roles:    roles,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (c Claims) hasRole(prefixes ...string) bool {
	for _, role := range c.Roles {
		for _, p := range prefixes {
			if strings.HasPrefix(role, p) {
				return true
			}
		}
	}
	return false
}

func (c Claims) IsAdmin() bool { return c.hasRole(RoleAdmin) }

// IsAuthor reports whether the user may create and edit documents.
func (c Claims) IsAuthor() bool { return c.hasRole(RoleAdmin, RoleAcademy, RoleInstructor) }

func (c Claims) Actor() page.Actor {
	return page.Actor{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
		IsAdmin:  c.IsAdmin(),
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (page.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return page.Actor{}, err
	}
	return claims.Actor(), nil
}
