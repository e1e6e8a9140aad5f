package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/auctionapi/parsing"
)

// ParsePublicKeyPEM parses a PEM-encoded ECDSA public key.
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("decode public key: no PEM block found")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, expected ECDSA", key)
	}
	return ecKey, nil
}

// VerifyCOSESignature verifies a COSE_Sign1 outcome proof against the
// settlement public key and returns the key id carried in its header.
func VerifyCOSESignature(proof auctionapi.ProofCOSE, publicKeyPEM string) (string, error) {
	publicKey, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return "", err
	}

	msg, err := parsing.DecodeSign1(proof)
	if err != nil {
		return "", err
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return "", fmt.Errorf("read algorithm header: %w", err)
	}
	if alg != cose.AlgorithmES256 {
		return "", fmt.Errorf("unsupported COSE algorithm %v", alg)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return "", fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return "", fmt.Errorf("COSE signature verification failed: %w", err)
	}

	keyID, _ := msg.Headers.Unprotected[cose.HeaderLabelKeyID].([]byte)
	return string(keyID), nil
}
