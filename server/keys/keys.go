// Package keys resolves and parses the keys actors sign their requests with,
// and signs and verifies HTTP requests.
package keys

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/tkrehbiel/activitystreams/server/activity"
)

var ErrNoKey = errors.New("no key")

// KeyFormatError reports a key that is absent or cannot be decoded.
type KeyFormatError struct {
	KeyID string
	Err   error
}

func (e *KeyFormatError) Error() string {
	if e.KeyID == "" {
		return fmt.Sprintf("bad key: %s", e.Err)
	}
	return fmt.Sprintf("bad key %s: %s", e.KeyID, e.Err)
}

func (e *KeyFormatError) Unwrap() error {
	return e.Err
}

// PublicKey decodes the public key an actor publishes.
func PublicKey(actor activity.Actor) (crypto.PublicKey, error) {
	if actor.PublicKey == nil || actor.PublicKey.PublicKeyPem == "" {
		var id string
		if actor.Base.ID != nil {
			id = *actor.Base.ID
		}
		return nil, &KeyFormatError{KeyID: id, Err: ErrNoKey}
	}
	key, err := ParsePublicKey([]byte(actor.PublicKey.PublicKeyPem))
	if err != nil {
		return nil, &KeyFormatError{KeyID: actor.PublicKey.ID, Err: err}
	}
	return key, nil
}

// ParsePublicKey decodes a PEM public key, PKIX first and PKCS1 second.
func ParsePublicKey(b []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return key, nil
}

// ParsePrivateKey decodes a PEM private key, PKCS8 first and PKCS1 second.
func ParsePrivateKey(b []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, &KeyFormatError{Err: fmt.Errorf("no PEM block")}
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, &KeyFormatError{Err: fmt.Errorf("parsing private key: %w", err)}
	}
	return key, nil
}

func LoadPrivateKey(filename string) (crypto.PrivateKey, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", filename, err)
	}
	return ParsePrivateKey(b)
}

// LoadPublicKeyPEM reads a public key file and checks that it parses. The
// PEM text is returned as is, for publishing in an actor document.
func LoadPublicKeyPEM(filename string) (string, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("reading public key %s: %w", filename, err)
	}
	if _, err := ParsePublicKey(b); err != nil {
		return "", &KeyFormatError{KeyID: filename, Err: err}
	}
	return string(b), nil
}
