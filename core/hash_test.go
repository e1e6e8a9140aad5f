package core

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func TestComputeBidHash(t *testing.T) {
	auctionID := "auction_123"
	bid := Bid{BuyerID: 2, Value: 2.50}
	nonce := "test_nonce_456"

	hash := ComputeBidHash(auctionID, bid, nonce)

	// Verify hash is 64 characters (SHA256 hex encoding)
	if len(hash) != 64 {
		t.Errorf("ComputeBidHash() hash length = %d, want 64", len(hash))
	}

	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("ComputeBidHash() contains non-hex character: %c", c)
		}
	}

	if hash != ComputeBidHash(auctionID, bid, nonce) {
		t.Errorf("ComputeBidHash() not deterministic")
	}

	expectedData := fmt.Sprintf("%s|%d|%.6f|%s", auctionID, bid.BuyerID, bid.Value, nonce)
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeBidHash() = %v, want %v", hash, expectedHash)
	}
}

func TestComputeBidHash_DifferentInputs(t *testing.T) {
	nonce := "test-nonce"
	base := ComputeBidHash("a-1", Bid{1, 2.50}, nonce)

	if base == ComputeBidHash("a-2", Bid{1, 2.50}, nonce) {
		t.Errorf("Different auction IDs should produce different hashes")
	}
	if base == ComputeBidHash("a-1", Bid{2, 2.50}, nonce) {
		t.Errorf("Different buyers should produce different hashes")
	}
	if base == ComputeBidHash("a-1", Bid{1, 2.500001}, nonce) {
		t.Errorf("Values differing in the 6th decimal should produce different hashes")
	}
	if base == ComputeBidHash("a-1", Bid{1, 2.50}, "other-nonce") {
		t.Errorf("Different nonces should produce different hashes")
	}
}

func TestComputeResultHash(t *testing.T) {
	nonce := "n"

	none := ComputeResultHash("a-1", 100, NoWinner(), nonce)
	won := ComputeResultHash("a-1", 100, newWinnerResult(4, 130), nonce)

	if none == won {
		t.Errorf("No-winner and winner results should produce different hashes")
	}

	expectedData := fmt.Sprintf("%s|%.6f|%s|%s|%s", "a-1", 100.0, "4", "130.000000", nonce)
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if won != expectedHash {
		t.Errorf("ComputeResultHash() = %v, want %v", won, expectedHash)
	}

	if won == ComputeResultHash("a-1", 100, newWinnerResult(4, 131), nonce) {
		t.Errorf("Different prices should produce different hashes")
	}
}

func TestTranscript(t *testing.T) {
	empty := NewTranscript()
	if empty.Count() != 0 {
		t.Errorf("Count() = %d, want 0", empty.Count())
	}
	if len(empty.Digest()) != 64 {
		t.Errorf("Digest() length = %d, want 64", len(empty.Digest()))
	}

	a := ComputeTranscriptDigest([]Bid{{0, 1.0}, {1, 2.0}})
	b := ComputeTranscriptDigest([]Bid{{1, 2.0}, {0, 1.0}})
	if a == b {
		t.Errorf("Transcript should depend on arrival order")
	}

	transcript := NewTranscript()
	transcript.Add(Bid{0, 1.0})
	first := transcript.Digest()
	if first != transcript.Digest() {
		t.Errorf("Digest() should not change the transcript")
	}
	transcript.Add(Bid{1, 2.0})
	if transcript.Digest() != a {
		t.Errorf("Incremental digest = %v, want %v", transcript.Digest(), a)
	}
	if transcript.Count() != 2 {
		t.Errorf("Count() = %d, want 2", transcript.Count())
	}
}
