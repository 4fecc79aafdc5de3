package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DEFAULT_EXPIRATION = 1 * time.Minute
	CLEANUP_INTERVAL   = 10 * time.Minute
)

// Store is an in-memory cache for revoked tokens & recently looked up records
type Store struct {
	cache *gocache.Cache
}

func NewStore() *Store {
	return &Store{cache: gocache.New(DEFAULT_EXPIRATION, CLEANUP_INTERVAL)}
}

func (s *Store) Get(key string) (interface{}, bool) {
	return s.cache.Get(key)
}

func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

func (s *Store) Delete(key string) {
	s.cache.Delete(key)
}

// RevokeToken denylists the token with 'jti' until it would have expired anyway
func (s *Store) RevokeToken(jti string, until time.Time) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return
	}

	s.cache.Set(revokedTokenKey(jti), true, ttl)
}

func (s *Store) IsTokenRevoked(jti string) bool {
	_, found := s.cache.Get(revokedTokenKey(jti))
	return found
}

func UserKey(userID interface{}) string {
	return fmt.Sprintf("user:%v", userID)
}

func revokedTokenKey(jti string) string {
	return "revoked-jti:" + jti
}
