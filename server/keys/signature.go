package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-fed/httpsig"
)

// Outgoing signatures are generated by hand; go-fed/httpsig output was not
// accepted by Mastodon. Incoming signatures are checked with httpsig.

var signedHeaders = []string{"(request-target)", "host", "date", "digest", "content-type"}

// KeySource finds the public key for a key id.
type KeySource interface {
	PublicKey(ctx context.Context, keyID string) (crypto.PublicKey, error)
}

func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

func signingString(headers []string, r *http.Request) string {
	lines := make([]string, 0, len(headers))
	for _, hdr := range headers {
		switch hdr {
		case "(request-target)":
			lines = append(lines, fmt.Sprintf("(request-target): %s %s", strings.ToLower(r.Method), r.URL.RequestURI()))
		case "host":
			host := r.Header.Get("Host")
			if host == "" {
				host = r.Host
			}
			lines = append(lines, "host: "+host)
		default:
			lines = append(lines, fmt.Sprintf("%s: %s", hdr, r.Header.Get(hdr)))
		}
	}
	return strings.Join(lines, "\n")
}

// signatureHeaders lists the headers named by the request's signature,
// lower cased. A signature without a headers parameter covers only date.
func signatureHeaders(r *http.Request) []string {
	sig := r.Header.Get("Signature")
	if sig == "" {
		sig = strings.TrimPrefix(r.Header.Get("Authorization"), "Signature ")
	}
	const param = `headers="`
	i := strings.Index(sig, param)
	if i < 0 {
		return []string{"date"}
	}
	list, _, _ := strings.Cut(sig[i+len(param):], `"`)
	return strings.Fields(strings.ToLower(list))
}

// Sign adds Date, Digest and Signature headers to a request carrying body.
func Sign(r *http.Request, body []byte, privateKey crypto.PrivateKey, keyID string) error {
	return signHeaders(r, body, privateKey, keyID, signedHeaders)
}

func signHeaders(r *http.Request, body []byte, privateKey crypto.PrivateKey, keyID string, headers []string) error {
	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("cannot sign with a %T", privateKey)
	}
	if r.Header.Get("Date") == "" {
		r.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if r.Header.Get("Host") == "" {
		r.Header.Set("Host", r.URL.Host)
	}
	r.Header.Set("Digest", Digest(body))

	hashed := sha256.Sum256([]byte(signingString(headers, r)))
	signature, err := rsa.SignPKCS1v15(rand.Reader, rsaKey, crypto.SHA256, hashed[:])
	if err != nil {
		return err
	}
	r.Header.Set("Signature", fmt.Sprintf(`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
		keyID, strings.Join(headers, " "), base64.StdEncoding.EncodeToString(signature)))
	return nil
}

// Verify checks the signature of a request and the digest of its body. A
// request with a body must sign its digest. It returns the id of the key
// that signed the request.
func Verify(ctx context.Context, r *http.Request, body []byte, keys KeySource) (string, error) {
	verifier, err := httpsig.NewVerifier(r)
	if err != nil {
		return "", err
	}
	keyID := verifier.KeyId()
	if len(body) > 0 && !slices.Contains(signatureHeaders(r), "digest") {
		return keyID, fmt.Errorf("signature from key %s does not cover the digest", keyID)
	}
	if digest := r.Header.Get("Digest"); (digest != "" || len(body) > 0) && digest != Digest(body) {
		return keyID, fmt.Errorf("digest mismatch for key %s", keyID)
	}
	pubKey, err := keys.PublicKey(ctx, keyID)
	if err != nil {
		return keyID, fmt.Errorf("resolving key %s: %w", keyID, err)
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return keyID, err
	}
	return keyID, nil
}
