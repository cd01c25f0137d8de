package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales_server/pkg/apperr"
	"sales_server/pkg/cache"
	"sales_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenBlacklist tracks revoked token ids in Redis.
type TokenBlacklist struct {
	cache *cache.RedisCache
}

// NewTokenBlacklist creates a blacklist. A nil cache disables revocation.
func NewTokenBlacklist(redisCache *cache.RedisCache) *TokenBlacklist {
	if redisCache == nil {
		logger.Warn("Redis not configured, token revocation disabled")
	}
	return &TokenBlacklist{cache: redisCache}
}

// Revoke blacklists a token id until it would have expired anyway.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiry time.Duration) error {
	if b == nil || b.cache == nil {
		return nil
	}
	return b.cache.Set(ctx, "token:blacklist:"+tokenID, "1", expiry)
}

// IsRevoked reports whether a token id was revoked. Redis failures count as
// not revoked.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	if b == nil || b.cache == nil {
		return false
	}
	revoked, err := b.cache.Exists(ctx, "token:blacklist:"+tokenID)
	if err != nil {
		logger.WithError(err).Warn("token blacklist lookup failed")
		return false
	}
	return revoked
}

// IssueToken signs an HS256 access token for a user.
func IssueToken(secret string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}
	if email != "" {
		claims["email"] = email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// JWTAuth validates HS256 bearer tokens and stores the subject as user_id.
func JWTAuth(secret string, blacklist *TokenBlacklist) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Minute),
	)

	return func(c *fiber.Ctx) error {
		// Skip auth for CORS preflight requests
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return apperr.Unauthorized("missing authorization")
		}

		token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if secret == "" {
				return nil, fmt.Errorf("JWT secret not configured")
			}
			return []byte(secret), nil
		})
		if err != nil {
			logger.WithError(err).Debug("JWT validation failed")
			if errors.Is(err, jwt.ErrTokenExpired) {
				return apperr.New(apperr.CodeTokenExpired, "token expired", fiber.StatusUnauthorized)
			}
			return apperr.InvalidToken("invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return apperr.InvalidToken("invalid claims")
		}
		if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
			return apperr.InvalidToken("missing expiration")
		}

		// Check token blacklist (for logout/revocation)
		if jti, ok := claims["jti"].(string); ok && jti != "" {
			if blacklist.IsRevoked(c.UserContext(), jti) {
				return apperr.InvalidToken("token has been revoked")
			}
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return apperr.InvalidToken("missing user id in token")
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			return apperr.InvalidToken("invalid user id format")
		}

		email, _ := claims["email"].(string)

		c.Locals("user_id", userID)
		c.Locals("user_email", email)
		c.SetUserContext(logger.ContextWithUserID(c.UserContext(), userID.String()))

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
