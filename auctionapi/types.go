package auctionapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/secondprice/core"
)

// Mode selects the engine an auction request runs on.
type Mode string

const (
	// ModeBatch runs over a complete per-buyer bid collection.
	ModeBatch Mode = "batch"
	// ModeStream ingests bids one at a time in the given order.
	ModeStream Mode = "stream"
)

// Request and response type tags.
const (
	TypeAuctionRequest  = "auction_request"
	TypeAuctionResponse = "auction_response"
)

// AuctionRequest is the JSON input of one auction.
//
// Batch requests carry BuyerBids, a list of per-buyer lists of bid values.
// Stream requests carry BuyerCount and Bids, an ordered list of
// {"buyer_id", "value"} objects.
type AuctionRequest struct {
	Type             string          `json:"type"`
	AuctionID        string          `json:"auction_id,omitempty"` // generated when empty
	Mode             Mode            `json:"mode"`
	ReservePrice     float64         `json:"reserve_price"`
	BuyerBids        json.RawMessage `json:"buyer_bids,omitempty"`
	BuyerCount       int             `json:"buyer_count,omitempty"`
	Bids             json.RawMessage `json:"bids,omitempty"`
	StrictBuyerRange bool            `json:"strict_buyer_range,omitempty"` // reject out-of-range buyers instead of ignoring them
	Timestamp        time.Time       `json:"timestamp"`
}

// StreamStep is the outcome observed right after one stream bid was ingested.
type StreamStep struct {
	Bid    core.Bid          `json:"bid"`
	Result core.WinnerResult `json:"result"`
}

// AuctionResponse is the JSON output of one auction.
type AuctionResponse struct {
	Type             string             `json:"type"`
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
	AuctionID        string             `json:"auction_id"`
	Mode             Mode               `json:"mode"`
	Result           *core.WinnerResult `json:"result,omitempty"`
	Steps            []StreamStep       `json:"steps,omitempty"`              // stream mode only
	BelowReserveBids int                `json:"below_reserve_bids"`           // bids that could not clear on their own
	IgnoredBids      int                `json:"ignored_bids,omitempty"`       // stream bids from out-of-range buyers
	ProofCOSEBase64  ProofCOSEBase64    `json:"proof_cose_base64,omitempty"`  // signed OutcomeProof
	ProcessingTime   int64              `json:"processing_time_ms"`
}

// OutcomeProof is the document signed by settlement. It commits to every
// input bid (as salted hashes) and to the outcome, so a buyer holding its own
// bids can check inclusion and recompute the result.
type OutcomeProof struct {
	ProofID          string            `cbor:"proof_id" json:"proof_id"`
	AuctionID        string            `cbor:"auction_id" json:"auction_id"`
	Mode             Mode              `cbor:"mode" json:"mode"`
	ReservePrice     float64           `cbor:"reserve_price" json:"reserve_price"`
	BuyerCount       int               `cbor:"buyer_count" json:"buyer_count"`
	BidHashes        []string          `cbor:"bid_hashes" json:"bid_hashes"`
	BidHashNonce     string            `cbor:"bid_hash_nonce" json:"bid_hash_nonce"`
	TranscriptDigest string            `cbor:"transcript_digest,omitempty" json:"transcript_digest,omitempty"` // stream mode only
	Result           core.WinnerResult `cbor:"result" json:"result"`
	ResultHash       string            `cbor:"result_hash" json:"result_hash"`
	ResultNonce      string            `cbor:"result_nonce" json:"result_nonce"`
	KeyID            string            `cbor:"key_id" json:"key_id"`
	Timestamp        int64             `cbor:"timestamp" json:"timestamp"` // unix milliseconds
}

var proofEncMode = mustProofEncMode()

func mustProofEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("auctionapi: cbor encoding options: %v", err))
	}
	return em
}

// EncodeCBOR encodes the proof with deterministic (core) CBOR encoding, so
// equal proofs always produce equal bytes.
func (p *OutcomeProof) EncodeCBOR() ([]byte, error) {
	data, err := proofEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode outcome proof: %w", err)
	}
	return data, nil
}

// DecodeOutcomeProof parses a CBOR-encoded proof.
func DecodeOutcomeProof(data []byte) (*OutcomeProof, error) {
	var proof OutcomeProof
	if err := cbor.Unmarshal(data, &proof); err != nil {
		return nil, fmt.Errorf("decode outcome proof: %w", err)
	}
	return &proof, nil
}
