package key

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
)

const KID = "safepoint-key-id"

type JWKS struct {
	Keys []interface{} `json:"keys"`
}

type KeyPair struct {
	Kid        string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// NewKeyPairFromRSAPrivateKeyPem accepts either a PEM encoded RSA private key
// or the path to a file containing one.
func NewKeyPairFromRSAPrivateKeyPem(pemOrFilePath string) (*KeyPair, error) {
	privateKeyBytes := []byte(pemOrFilePath)

	if !strings.Contains(pemOrFilePath, "-----BEGIN") {
		var err error
		privateKeyBytes, err = os.ReadFile(pemOrFilePath)
		if err != nil {
			return nil, err
		}
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("unable to parse RSA private key: %v", err)
	}

	return &KeyPair{
		Kid:        KID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey}, nil
}

func (keyPair *KeyPair) JWK() (jwk.Key, error) {
	keyPairJWK, err := jwk.New(keyPair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}

	for k, v := range map[string]interface{}{
		jwk.KeyIDKey:     keyPair.Kid,
		jwk.AlgorithmKey: jwa.RS256,
		jwk.KeyUsageKey:  string(jwk.ForSignature),
	} {
		if err := keyPairJWK.Set(k, v); err != nil {
			return nil, fmt.Errorf("JWK: %v", err)
		}
	}

	return keyPairJWK, nil
}

func ExportJWKAsJWKS(jwk jwk.Key) JWKS {
	return JWKS{Keys: []interface{}{jwk}}
}

func PublicKeyFromJWK(key jwk.Key) (*rsa.PublicKey, error) {
	publicKey := rsa.PublicKey{}

	err := key.Raw(&publicKey)
	if err != nil {
		return nil, err
	}

	return &publicKey, nil
}
