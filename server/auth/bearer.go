package auth

import (
	"errors"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingAuthorizationHeader = errors.New("no token provided")
	ErrInvalidAuthorizationHeader = errors.New("invalid token provided")
)

// ParseBearerToken extracts the token from an 'Authorization: Bearer <token>' header value
func ParseBearerToken(authHeaderValue string) (string, error) {
	if strings.TrimSpace(authHeaderValue) == "" {
		return "", ErrMissingAuthorizationHeader
	}

	splitToken := strings.Split(authHeaderValue, bearerPrefix)
	if len(splitToken) != 2 || strings.TrimSpace(splitToken[1]) == "" {
		return "", ErrInvalidAuthorizationHeader
	}

	return strings.TrimSpace(splitToken[1]), nil
}
