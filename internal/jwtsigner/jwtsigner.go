package jwtsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues and verifies access tokens with either an HMAC secret or an
// Ed25519 keypair.
type Signer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	public    ed25519.PublicKey

	KeyID  string
	Issuer string
}

// NewHMAC creates an HS256 signer.
func NewHMAC(secret []byte, kid, iss string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty hmac secret")
	}
	return &Signer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		KeyID:     kid,
		Issuer:    iss,
	}, nil
}

// NewFromBase64 creates an EdDSA signer from base64-encoded ed25519 private key bytes.
// If privB64 is empty, it generates an ephemeral key (good for local dev).
func NewFromBase64(privB64, kid, iss string) (*Signer, error) {
	var priv ed25519.PrivateKey
	if privB64 == "" {
		var err error
		if _, priv, err = ed25519.GenerateKey(rand.Reader); err != nil {
			return nil, err
		}
	} else {
		raw, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key size")
		}
		priv = ed25519.PrivateKey(raw)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{
		method:    jwt.SigningMethodEdDSA,
		signKey:   priv,
		verifyKey: pub,
		public:    pub,
		KeyID:     kid,
		Issuer:    iss,
	}, nil
}

// New picks the signer for alg ("HS256" or "EDDSA").
func New(alg, secret, ed25519B64, kid, iss string) (*Signer, error) {
	switch alg {
	case "HS256":
		return NewHMAC([]byte(secret), kid, iss)
	case "EDDSA", "EdDSA":
		return NewFromBase64(ed25519B64, kid, iss)
	default:
		return nil, fmt.Errorf("unsupported signing alg %q", alg)
	}
}

func (s *Signer) Alg() string { return s.method.Alg() }

// Sign serializes claims into a compact JWT carrying the signer's kid header.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.KeyID
	return t.SignedString(s.signKey)
}

// Parse verifies token and decodes it into claims. Only the signer's own
// algorithm and issuer are accepted.
func (s *Signer) Parse(token string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	base := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	}, append(base, opts...)...)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("token is not valid")
	}
	return nil
}

// PublicJWK renders the public part as JWK for the JWKS endpoint. HMAC
// signers have nothing to publish.
func (s *Signer) PublicJWK() (map[string]any, bool) {
	if s.public == nil {
		return nil, false
	}
	return map[string]any{
		"kty": "OKP",
		"crv": "Ed25519",
		"alg": "EdDSA",
		"use": "sig",
		"kid": s.KeyID,
		"x":   base64.RawURLEncoding.EncodeToString(s.public),
	}, true
}
