package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Role         string         `json:"role"`         // usually "authenticated" / "anon"
	AppMetadata  map[string]any `json:"app_metadata"` // marketplace role lives here: {"role":"company"}
	UserMetadata map[string]any `json:"user_metadata"`
}

type JWTConfig struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(JWTConfig{
		Secret:   os.Getenv("SUPABASE_JWT_SECRET"),
		Issuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		Audience: os.Getenv("SUPABASE_JWT_AUDIENCE"),
	})
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: utils.CodeUnauthorized, Message: msg})
}

func JWTAuthWithConfig(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "SUPABASE_JWT_SECRET is not set",
			})
			return
		}

		raw := bearerToken(c)
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims := &supabaseClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(cfg.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || tok == nil || !tok.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			abortUnauthorized(c, "invalid token issuer")
			return
		}
		if cfg.Audience != "" {
			valid := false
			for _, aud := range claims.Audience {
				if aud == cfg.Audience {
					valid = true
					break
				}
			}
			if !valid {
				abortUnauthorized(c, "invalid token audience")
				return
			}
		}

		userID := claims.Subject
		if userID == "" {
			abortUnauthorized(c, "missing subject")
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxRole, string(marketplaceRole(claims)))
		c.Next()
	}
}

// bearerToken reads the Authorization header, or the access_token query
// parameter used by browser WebSocket clients.
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c.IsWebsocket() {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// marketplaceRole is app_metadata.role, falling back to user_metadata.role.
// Unknown values yield an empty role, which no route accepts.
func marketplaceRole(claims *supabaseClaims) models.UserRole {
	for _, md := range []map[string]any{claims.AppMetadata, claims.UserMetadata} {
		if md == nil {
			continue
		}
		if s, ok := md["role"].(string); ok {
			r := models.UserRole(strings.ToLower(strings.TrimSpace(s)))
			if r.Valid() {
				return r
			}
		}
	}
	return ""
}
