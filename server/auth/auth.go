package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/safepoint/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost used when hashing passwords
var BcryptCost = 14

type SafePointTokenClaims struct {
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewTokenClaims returns claims for 'userID' which expire after 'ttl'
func NewTokenClaims(userID uint, fullName string, isAdmin bool, ttl time.Duration) SafePointTokenClaims {
	now := time.Now()
	return SafePointTokenClaims{
		FullName: fullName,
		IsAdmin:  isAdmin,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			Issuer:    "safepoint",
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
}

func EncodeJWT(claims SafePointTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*SafePointTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SafePointTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*SafePointTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SafePointTokenClaims")
	}

	return tokenClaims, nil
}
