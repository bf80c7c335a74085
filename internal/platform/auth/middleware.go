package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
	UserEmailKey contextKey = "user_email"
)

const (
	RoleNutritionist = "nutritionist"
	RolePatient      = "patient"
	RoleAdmin        = "admin"
)

// DevUserID is the identity assumed in development when a request carries
// neither a token nor X-User-ID.
var DevUserID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	Skipper    func(c echo.Context) bool
}

// tokenFromRequest reads the bearer token from the Authorization header, or
// from the access_token query parameter for websocket upgrades where browsers
// cannot set headers.
func tokenFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if tok := c.QueryParam("access_token"); tok != "" {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ParseToken validates an HS256 token and returns its claims. The subject
// must be a UUID.
func ParseToken(cfg JWTConfig, tokenStr string) (*Claims, uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	if claims.Role == "" {
		claims.Role = RolePatient
	}
	return claims, uid, nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := tokenFromRequest(c)
			if err != nil {
				return err
			}

			claims, uid, err := ParseToken(cfg, tokenStr)
			if err != nil {
				return err
			}

			setUser(c, uid, claims.Role, claims.Email)
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts X-User-ID / X-User-Role / X-User-Email headers.
// Bearer tokens are still validated when present and a signing key is set.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			if raw := req.Header.Get("X-User-ID"); raw != "" {
				uid, err := uuid.Parse(raw)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "X-User-ID must be a UUID")
				}
				role := req.Header.Get("X-User-Role")
				if role == "" {
					role = RoleNutritionist
				}
				setUser(c, uid, role, req.Header.Get("X-User-Email"))
				return next(c)
			}

			if len(cfg.SigningKey) > 0 && (req.Header.Get("Authorization") != "" || c.QueryParam("access_token") != "") {
				tokenStr, err := tokenFromRequest(c)
				if err != nil {
					return err
				}
				claims, uid, err := ParseToken(cfg, tokenStr)
				if err != nil {
					return err
				}
				setUser(c, uid, claims.Role, claims.Email)
				return next(c)
			}

			setUser(c, DevUserID, RoleNutritionist, "dev@localhost")
			return next(c)
		}
	}
}

func setUser(c echo.Context, uid uuid.UUID, role, email string) {
	c.Set("user_id", uid.String())
	c.Set("user_role", role)
	c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), uid, role, email)))
}

// WithUser returns a context carrying the authenticated identity.
func WithUser(ctx context.Context, uid uuid.UUID, role, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, uid)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return context.WithValue(ctx, UserEmailKey, email)
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

// CurrentUserID returns the caller's id or a 401 when the request is anonymous.
func CurrentUserID(c echo.Context) (uuid.UUID, error) {
	uid := UserIDFromContext(c.Request().Context())
	if uid == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}
