// Package keysettest provides helpers for tests that need a fake identity
// issuer: an in-memory JWKS endpoint and matching signing keys.
package keysettest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Issuer is a fake JWKS endpoint backed by a freshly generated RSA key.
type Issuer struct {
	Key    *rsa.PrivateKey
	Kid    string
	Server *httptest.Server

	fetches atomic.Int64
}

// NewIssuer generates an RSA key pair and starts an httptest server that
// serves the matching JWKS document. The server is shut down via t.Cleanup.
func NewIssuer(t *testing.T, kid string) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}

	iss := &Issuer{Key: key, Kid: kid}
	iss.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iss.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(Document(kid, &key.PublicKey))
	}))
	t.Cleanup(iss.Server.Close)

	return iss
}

// Fetches reports how many times the JWKS document has been served.
func (i *Issuer) Fetches() int64 {
	return i.fetches.Load()
}

// Document renders a JWKS document containing the single given RSA key.
func Document(kid string, pub *rsa.PublicKey) []byte {
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	b, _ := json.Marshal(doc)
	return b
}
