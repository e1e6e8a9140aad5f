package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/zeebo/blake3"
)

// ComputeBidHash computes the hash committing to one bid of an auction.
// This is used by both settlement (to generate hashes) and validation (to verify hashes).
//
// Formula: SHA256(auction_id + "|" + buyer_id + "|" + sprintf("%.6f", value) + "|" + nonce)
//
// The value is formatted to exactly 6 decimal places to ensure consistent hashing
// regardless of how the float is represented in memory.
func ComputeBidHash(auctionID string, bid Bid, nonce string) string {
	data := fmt.Sprintf("%s|%d|%.6f|%s", auctionID, bid.BuyerID, bid.Value, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeResultHash computes the hash committing to an auction outcome.
//
// Formula: SHA256(auction_id + "|" + sprintf("%.6f", reserve) + "|" + winner + "|" + price + "|" + nonce)
// where winner and price are "none" when nothing was sold.
func ComputeResultHash(auctionID string, reservePrice float64, result WinnerResult, nonce string) string {
	winner, price := "none", "none"
	if buyer, p, ok := result.Winner(); ok {
		winner = fmt.Sprintf("%d", buyer)
		price = fmt.Sprintf("%.6f", p)
	}
	data := fmt.Sprintf("%s|%.6f|%s|%s|%s", auctionID, reservePrice, winner, price, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Transcript is a rolling BLAKE3 digest over a sequence of bids.
// Its state has constant size no matter how many bids are added, so a
// streaming auction can commit to its arrival order without storing history.
type Transcript struct {
	hasher *blake3.Hasher
	count  int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{hasher: blake3.New()}
}

// Add appends a bid to the transcript.
func (t *Transcript) Add(bid Bid) {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(bid.BuyerID))
	binary.BigEndian.PutUint64(buf[8:], math.Float64bits(bid.Value))
	// blake3.Hasher.Write never returns an error
	_, _ = t.hasher.Write(buf[:])
	t.count++
}

// Count returns the number of bids added.
func (t *Transcript) Count() int {
	return t.count
}

// Digest returns the hex digest of the bids added so far.
// It does not reset the transcript.
func (t *Transcript) Digest() string {
	return hex.EncodeToString(t.hasher.Sum(nil))
}

// ComputeTranscriptDigest digests a complete bid sequence in one call.
func ComputeTranscriptDigest(bids []Bid) string {
	transcript := NewTranscript()
	for _, bid := range bids {
		transcript.Add(bid)
	}
	return transcript.Digest()
}
