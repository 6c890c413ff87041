package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/utils"
)

const tokenIssuer = "exploration"

// AuthRequired accepts an HS256 bearer token whose subject is the account id.
func AuthRequired(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return utils.SendUnauthorized(c, "Missing bearer token")
		}

		accountID, err := ParseToken(secret, raw)
		if err != nil {
			slog.Debug("Auth required: invalid token",
				slog.String("type", "http"),
				slog.String("reason", err.Error()))
			return utils.SendUnauthorized(c, "Invalid token")
		}

		utils.SetAccountID(c, accountID)
		return c.Next()
	}
}

// SignToken issues a token for accountID valid for ttl.
func SignToken(secret []byte, accountID int64, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates raw and returns the account id in its subject.
func ParseToken(secret []byte, raw string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return accountID, nil
}
