package auctionapi

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cloudx-io/secondprice/auctionapi/parsing"
)

// ProofCOSE is a raw COSE_Sign1 outcome proof.
type ProofCOSE []byte

// ProofCOSEBase64 is a proof in standard base64, as carried in JSON responses.
type ProofCOSEBase64 string

// ProofCOSEURLBase64 is a proof in unpadded URL-safe base64.
type ProofCOSEURLBase64 string

// ProofCOSEGzip is a gzip-compressed proof in unpadded URL-safe base64,
// compact enough for win notification URLs.
type ProofCOSEGzip string

// EncodeBase64 encodes raw proof bytes to standard base64
func (c ProofCOSE) EncodeBase64() ProofCOSEBase64 {
	return ProofCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

// EncodeURLSafe encodes raw proof bytes to unpadded URL-safe base64
func (c ProofCOSE) EncodeURLSafe() ProofCOSEURLBase64 {
	return ProofCOSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip compresses the proof and encodes it URL-safe.
func (c ProofCOSE) CompressGzip() (ProofCOSEGzip, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(c); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return ProofCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// ParseProof decodes the COSE_Sign1 envelope and the CBOR proof inside it.
// It does NOT verify the signature; use the validation package for that.
func (c ProofCOSE) ParseProof() (*OutcomeProof, error) {
	payload, err := parsing.ExtractCOSEPayload(c)
	if err != nil {
		return nil, err
	}
	return DecodeOutcomeProof(payload)
}

func (s ProofCOSEBase64) String() string {
	return string(s)
}

// Decode decodes standard base64 to raw proof bytes
func (s ProofCOSEBase64) Decode() (ProofCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return ProofCOSE(data), nil
}

// CompressGzip is a convenience for Decode followed by CompressGzip.
func (s ProofCOSEBase64) CompressGzip() (ProofCOSEGzip, error) {
	raw, err := s.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (s ProofCOSEURLBase64) String() string {
	return string(s)
}

// Decode decodes URL-safe base64, with or without padding.
func (s ProofCOSEURLBase64) Decode() (ProofCOSE, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(s), "="))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return ProofCOSE(data), nil
}

func (s ProofCOSEGzip) String() string {
	return string(s)
}

// Decompress reverses ProofCOSE.CompressGzip.
func (s ProofCOSEGzip) Decompress() (ProofCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(s), "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gzip data: %w", err)
	}
	return ProofCOSE(data), nil
}
