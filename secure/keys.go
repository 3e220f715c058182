// Package secure implements the hybrid handshake and the encrypted channel
// that carries every framed message after it.
package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"lukechampine.com/blake3"
)

const (
	DefaultKeyBits = 2048
	// MinPeerKeyBits is the smallest public key accepted from the other side.
	MinPeerKeyBits = 2048
	pemBlockType   = "RSA PUBLIC KEY"
)

// KeyPair is an RSA key pair. The server shares one across all sessions; a
// client makes a fresh one per connection.
type KeyPair struct {
	private *rsa.PrivateKey
	pubPEM  []byte
}

func GenerateKeyPair(bits int) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{
		private: priv,
		pubPEM:  encodePublicKey(&priv.PublicKey),
	}, nil
}

// PublicPEM is the PKCS#1 PEM encoding sent during the handshake.
func (kp *KeyPair) PublicPEM() []byte {
	return kp.pubPEM
}

// Size is the length in bytes of a ciphertext made with this key.
func (kp *KeyPair) Size() int {
	return kp.private.Size()
}

// Fingerprint is the hex BLAKE3 digest of the public key PEM.
func (kp *KeyPair) Fingerprint() string {
	sum := blake3.Sum256(kp.pubPEM)
	return hex.EncodeToString(sum[:])
}

func encodePublicKey(pub *rsa.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemBlockType,
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	})
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("expected %s PEM block", pemBlockType)
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	if pub.N.BitLen() < MinPeerKeyBits {
		return nil, fmt.Errorf("public key too small: %d bits", pub.N.BitLen())
	}
	return pub, nil
}
