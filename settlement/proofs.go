package settlement

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/core"
)

// proofInput is everything an outcome proof commits to.
type proofInput struct {
	auctionID        string
	mode             auctionapi.Mode
	reservePrice     float64
	buyerCount       int
	bids             []core.Bid
	transcriptDigest string
	result           core.WinnerResult
}

// generateOutcomeProof builds and signs the proof for one auction.
//
// Bid hashes are computed in input order with a fresh nonce, so a buyer who
// knows its own bids can check they were included without learning anyone
// else's.
func generateOutcomeProof(keyManager *KeyManager, in proofInput) (auctionapi.ProofCOSE, error) {
	if keyManager == nil {
		return nil, fmt.Errorf("key manager is nil")
	}

	bidHashNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate bid hash nonce: %w", err)
	}

	resultNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate result nonce: %w", err)
	}

	bidHashes := make([]string, 0, len(in.bids))
	for _, bid := range in.bids {
		bidHashes = append(bidHashes, core.ComputeBidHash(in.auctionID, bid, bidHashNonce))
	}

	proof := &auctionapi.OutcomeProof{
		ProofID:          uuid.NewString(),
		AuctionID:        in.auctionID,
		Mode:             in.mode,
		ReservePrice:     in.reservePrice,
		BuyerCount:       in.buyerCount,
		BidHashes:        bidHashes,
		BidHashNonce:     bidHashNonce,
		TranscriptDigest: in.transcriptDigest,
		Result:           in.result,
		ResultHash:       core.ComputeResultHash(in.auctionID, in.reservePrice, in.result, resultNonce),
		ResultNonce:      resultNonce,
		KeyID:            keyManager.KeyID,
		Timestamp:        time.Now().UnixMilli(),
	}

	return SignProof(keyManager, proof)
}

// SignProof wraps the CBOR-encoded proof in a COSE_Sign1 message signed
// with ES256.
func SignProof(keyManager *KeyManager, proof *auctionapi.OutcomeProof) (auctionapi.ProofCOSE, error) {
	payload, err := proof.EncodeCBOR()
	if err != nil {
		return nil, err
	}

	signer, err := keyManager.signer()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Headers.Unprotected[cose.HeaderLabelKeyID] = []byte(keyManager.KeyID)
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		log.Printf("ERROR: Proof signing failed: %v", err)
		return nil, fmt.Errorf("sign outcome proof: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode COSE_Sign1: %w", err)
	}

	log.Printf("INFO: Outcome proof %s signed: %d bytes", proof.ProofID, len(coseBytes))
	return auctionapi.ProofCOSE(coseBytes), nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
