package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/mr-tron/base58"
)

// KeyPair is the ephemeral Ed25519 identity a probe run presents during the
// TLS handshake. It is generated fresh per run and never persisted.
type KeyPair struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// NewKeyPair generates a fresh keypair.
func NewKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return KeyPair{Public: pub, private: priv}, nil
}

// String returns the base58 form of the public key, the way validator
// identities appear in cluster info.
func (kp KeyPair) String() string {
	return base58.Encode(kp.Public)
}

// IsPubkey reports whether s is a plausible validator identity: base58 text
// decoding to a 32-byte key.
func IsPubkey(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == ed25519.PublicKeySize
}

// NewCertificate builds the self-signed client certificate the TPU QUIC
// handshake requires. The certificate carries the keypair's real public key
// (peers may inspect it) but no authority: there is no CA, the subject is a
// placeholder, and "localhost" is the only subject-alternative-name. The
// validity range is effectively unbounded (1970 through year 4096).
func NewCertificate(kp KeyPair) (tls.Certificate, error) {
	if len(kp.Public) != ed25519.PublicKeySize || len(kp.private) != ed25519.PrivateKeySize {
		return tls.Certificate{}, fmt.Errorf("malformed keypair: pub=%d priv=%d bytes", len(kp.Public), len(kp.private))
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(0x0101010101010101),
		Subject:               pkix.Name{CommonName: "Solana node"},
		NotBefore:             time.Unix(0, 0).UTC(),
		NotAfter:              time.Date(4096, 1, 1, 0, 0, 0, 0, time.UTC),
		DNSNames:              []string{"localhost"},
		BasicConstraintsValid: true,
		SignatureAlgorithm:    x509.PureEd25519,
	}

	// Ed25519 signing is deterministic, so the certificate is a pure function
	// of the keypair.
	der, err := x509.CreateCertificate(rand.Reader, template, template, kp.Public, kp.private)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  kp.private,
		Leaf:        leaf,
	}, nil
}
