package helper

import (
	"errors"
	"fmt"
	"time"

	"nightlife_order/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateAccessToken(claim model.TokenClaim, secret []byte, ttl time.Duration) (model.TokenData, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	expires := time.Now().Add(ttl).Unix()

	claims := token.Claims.(jwt.MapClaims)
	claims["username"] = claim.Username
	claims["accountId"] = claim.AccountId
	claims["waiterId"] = claim.WaiterId
	claims["venueId"] = claim.VenueId
	claims["role"] = claim.Role
	claims["exp"] = expires

	t, err := token.SignedString(secret)
	if err != nil {
		return model.TokenData{}, err
	}
	return model.TokenData{AccessToken: t, ExpiresAt: expires}, nil
}

func ParseToken(tokenString string, secret []byte) (model.TokenClaim, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return model.TokenClaim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.TokenClaim{}, ErrInvalidToken
	}

	// numbers come back from JSON as float64
	number := func(key string) uint {
		v, _ := claims[key].(float64)
		return uint(v)
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	return model.TokenClaim{
		AccountId: number("accountId"),
		WaiterId:  number("waiterId"),
		VenueId:   number("venueId"),
		Username:  username,
		Role:      role,
	}, nil
}

// ClaimFromCtx returns the claim stored by middleware.Protected.
func ClaimFromCtx(c *fiber.Ctx) (model.TokenClaim, bool) {
	claim, ok := c.Locals("claim").(model.TokenClaim)
	return claim, ok
}
