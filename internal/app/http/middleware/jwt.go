package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Claims is what handlers read from the gin context.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

// HMACVerifier accepts HS256 tokens signed with the service secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (Claims, error) {
	if len(v.secret) == 0 {
		return Claims{}, errors.New("JWT secret not configured")
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid token claims")
	}

	var out Claims
	if email, ok := mc["email"].(string); ok {
		out.Email = email
	}
	if role, ok := mc["role"].(string); ok {
		out.Role = role
	}
	if userIDFloat, ok := mc["user_id"].(float64); ok {
		out.UserID = uint(userIDFloat)
	}
	return out, nil
}

// Sign issues an HS256 token carrying c.
func (v *HMACVerifier) Sign(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": c.UserID,
		"email":   c.Email,
		"role":    c.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}

// OIDCVerifier accepts ID tokens from the external identity provider.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "oidc provider %s", issuer)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Claims{}, errors.Wrap(err, "invalid id token")
	}
	var out Claims
	if err := idToken.Claims(&out); err != nil {
		return Claims{}, errors.Wrap(err, "invalid token claims")
	}
	return out, nil
}

// AnyVerifier accepts a token if any of its verifiers does.
type AnyVerifier []TokenVerifier

func (vs AnyVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	err := errors.New("no token verifier configured")
	for _, v := range vs {
		var claims Claims
		claims, err = v.Verify(ctx, raw)
		if err == nil {
			return claims, nil
		}
	}
	return Claims{}, err
}

func AuthMiddleware(verifier TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			log.WithError(err).Debug("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			return
		}

		for _, role := range roles {
			if value == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}
