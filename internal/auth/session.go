// internal/auth/session.go
package auth

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	keyMu      sync.RWMutex
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long issued tokens stay valid (0 => never expire).
	tokenTTL time.Duration
)

// ErrNoKeys is returned when tokens are used before Init.
var ErrNoKeys = errors.New("auth keys not initialized")

// Identity is the authenticated player behind a request.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Init generates a fresh ed25519 key pair at runtime and sets the token lifetime.
// Only tokens signed by this process will verify.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	setKeys(priv, pub, ttl)
	return nil
}

// InitFromPath reads the ed25519 key pair from file and sets the token lifetime.
// Keys may be PEM (PKCS#8 private, PKIX public) or raw key bytes.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	priv, err := readPrivateKey(privatePath)
	if err != nil {
		return err
	}
	pub, err := readPublicKey(publicPath)
	if err != nil {
		return err
	}
	if !pub.Equal(priv.Public()) {
		return errors.New("ed25519 public key does not match private key")
	}
	setKeys(priv, pub, ttl)
	return nil
}

// InitVerifier loads only the public key of the issuing auth service. Tokens
// can be verified but CreateJWT returns ErrNoKeys.
func InitVerifier(publicPath string, ttl time.Duration) error {
	pub, err := readPublicKey(publicPath)
	if err != nil {
		return err
	}
	setKeys(nil, pub, ttl)
	return nil
}

func readPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		key, err := jwt.ParseEdPrivateKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
		}
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key %s is not ed25519", path)
		}
		return priv, nil
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("unexpected ed25519 private key size in %s", path)
	}
	return ed25519.PrivateKey(data), nil
}

func readPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		key, err := jwt.ParseEdPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key %s: %w", path, err)
		}
		pub, ok := key.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key %s is not ed25519", path)
		}
		return pub, nil
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 public key size in %s", path)
	}
	return ed25519.PublicKey(data), nil
}

func setKeys(priv ed25519.PrivateKey, pub ed25519.PublicKey, ttl time.Duration) {
	keyMu.Lock()
	defer keyMu.Unlock()
	privateKey, publicKey, tokenTTL = priv, pub, ttl
}

// CreateJWT creates a signed JWT token with "sub" = userID and "name" = username.
// An "exp" claim is only added when a token lifetime is configured.
func CreateJWT(userID uuid.UUID, username string) (string, error) {
	keyMu.RLock()
	defer keyMu.RUnlock()
	if privateKey == nil {
		return "", ErrNoKeys
	}

	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"name": username,
		"iat":  time.Now().Unix(),
	}
	if tokenTTL != 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string and returns the identity it carries.
func AuthenticateJWT(tokenString string) (Identity, error) {
	keyMu.RLock()
	key := publicKey
	keyMu.RUnlock()
	if key == nil {
		return Identity{}, ErrNoKeys
	}

	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("missing sub in jwt")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	name, _ := claims["name"].(string)
	return Identity{UserID: userID, Username: name}, nil
}
