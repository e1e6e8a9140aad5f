package validation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/core"
)

// ValidateOutcome validates a signed outcome proof and verifies:
// - The proof was signed by the settlement key
// - The proof belongs to the expected auction
// - Every bid the caller placed was included in the auction
// - Clearing price matches
// - Winner/loser determination
// - When all bids are disclosed, the outcome recomputes to the same result
//
// Returns:
//   - OutcomeValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed proof)
func ValidateOutcome(input *OutcomeValidationInput) (*OutcomeValidationResult, error) {
	if input == nil {
		return nil, fmt.Errorf("validation input is nil")
	}

	proof, err := input.Proof.ParseProof()
	if err != nil {
		return nil, fmt.Errorf("failed to parse outcome proof: %w", err)
	}

	result := &OutcomeValidationResult{}

	result.SignatureValid = validateSignature(input, proof, result)
	result.AuctionIDValid = validateAuctionID(input, proof, result)
	result.BidInclusionValid = validateBidInclusion(input, proof, result)
	result.ClearingPriceValid = validateClearingPrice(input, proof, result)
	result.WinnerValid = validateWinner(input, proof, result)
	result.RecomputationValid = validateRecomputation(input, proof, result)

	return result, nil
}

func validateSignature(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	keyID, err := VerifyCOSESignature(input.Proof, input.PublicKeyPEM)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature validation failed: %v", err))
		return false
	}

	if keyID != proof.KeyID {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Key id mismatch: header has %q, proof has %q", keyID, proof.KeyID))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature validation passed (key %s)", keyID))
	return true
}

func validateAuctionID(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	if input.AuctionID == "" || input.AuctionID == proof.AuctionID {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id: %s", proof.AuctionID))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Auction id mismatch: expected %s, proof has %s", input.AuctionID, proof.AuctionID))
	return false
}

func validateBidInclusion(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	if proof.BidHashNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Bid hash nonce missing from proof")
		return false
	}

	// Each own bid must match a distinct proof hash, so a buyer that bid the
	// same value twice needs two matching entries.
	remaining := hashCounts(proof.BidHashes)
	valid := true
	for _, bid := range input.OwnBids {
		computedHash := core.ComputeBidHash(proof.AuctionID, bid, proof.BidHashNonce)
		if remaining[computedHash] > 0 {
			remaining[computedHash]--
			continue
		}
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Bid hash NOT found in proof: buyer %d value %s (computed %s)", bid.BuyerID, core.FormatPrice(bid.Value), computedHash))
		valid = false
	}

	if valid {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Bid inclusion validation passed: %d of %d hashes are own bids", len(input.OwnBids), len(proof.BidHashes)))
	}
	return valid
}

func validateClearingPrice(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	_, provenPrice, hasWinner := proof.Result.Winner()

	if input.ClearingPrice == nil {
		// Caller expects no winner
		if !hasWinner {
			result.ValidationDetails = append(result.ValidationDetails, "Clearing price validation passed: no winner expected and no winner in proof")
			return true
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Clearing price mismatch: expected no winner, but proof has winner with price %s", core.FormatPrice(provenPrice)))
		return false
	}

	if !hasWinner {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Clearing price mismatch: expected winner with price %s, but proof has no winner", core.FormatPrice(*input.ClearingPrice)))
		return false
	}

	if pricesEqual(*input.ClearingPrice, provenPrice) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Clearing price validation passed: %s", core.FormatPrice(provenPrice)))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Clearing price mismatch: expected %s, proof has %s", core.FormatPrice(*input.ClearingPrice), core.FormatPrice(provenPrice)))
	return false
}

func validateWinner(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	winner, price, hasWinner := proof.Result.Winner()
	actuallyWon := hasWinner && winner == input.BuyerID

	if input.IsWinner == actuallyWon {
		if actuallyWon {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation passed: buyer %d won as expected (price: %s)", winner, core.FormatPrice(price)))
		} else {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation passed: buyer %d lost as expected", input.BuyerID))
		}
		return true
	}

	if input.IsWinner {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: buyer %d expected to win, but did not win", input.BuyerID))
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: buyer %d expected to lose, but won with price %s", input.BuyerID, core.FormatPrice(price)))
	}
	return false
}

// validateRecomputation re-runs the auction from the disclosed bids and
// checks the proof commits to exactly those bids and that outcome.
func validateRecomputation(input *OutcomeValidationInput, proof *auctionapi.OutcomeProof, result *OutcomeValidationResult) bool {
	resultHash := core.ComputeResultHash(proof.AuctionID, proof.ReservePrice, proof.Result, proof.ResultNonce)
	if resultHash != proof.ResultHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Result hash mismatch: computed %s, proof has %s", resultHash, proof.ResultHash))
		return false
	}

	if input.DisclosedBids == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Recomputation skipped: bids not disclosed")
		return true
	}

	var recomputed core.WinnerResult
	var err error
	switch proof.Mode {
	case auctionapi.ModeBatch:
		if !sameHashMultiset(disclosedHashes(input.DisclosedBids, proof), proof.BidHashes) {
			result.ValidationDetails = append(result.ValidationDetails, "Recomputation failed: disclosed bids do not match proof bid hashes")
			return false
		}
		recomputed, err = core.ComputeWinnerFromBids(proof.ReservePrice, input.DisclosedBids)

	case auctionapi.ModeStream:
		// Arrival order matters for the transcript, so hashes must match in order.
		if !sameHashSequence(disclosedHashes(input.DisclosedBids, proof), proof.BidHashes) {
			result.ValidationDetails = append(result.ValidationDetails, "Recomputation failed: disclosed bids do not match proof bid hashes in order")
			return false
		}
		if digest := core.ComputeTranscriptDigest(input.DisclosedBids); digest != proof.TranscriptDigest {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Transcript digest mismatch: computed %s, proof has %s", digest, proof.TranscriptDigest))
			return false
		}
		recomputed, err = core.Replay(proof.ReservePrice, proof.BuyerCount, input.DisclosedBids)

	default:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recomputation failed: unknown auction mode %q", proof.Mode))
		return false
	}

	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recomputation failed: %v", err))
		return false
	}

	if !recomputed.Equal(proof.Result) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recomputation mismatch: recomputed %s, proof has %s", recomputed, proof.Result))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recomputation passed over %d disclosed bids: %s", len(input.DisclosedBids), recomputed))
	return true
}

// pricesEqual compares two prices at monetary precision.
func pricesEqual(a, b float64) bool {
	da := decimal.NewFromFloat(a).Round(core.MonetaryPrecision)
	db := decimal.NewFromFloat(b).Round(core.MonetaryPrecision)
	return da.Equal(db)
}

func disclosedHashes(bids []core.Bid, proof *auctionapi.OutcomeProof) []string {
	hashes := make([]string, 0, len(bids))
	for _, bid := range bids {
		hashes = append(hashes, core.ComputeBidHash(proof.AuctionID, bid, proof.BidHashNonce))
	}
	return hashes
}

func hashCounts(hashes []string) map[string]int {
	counts := make(map[string]int, len(hashes))
	for _, h := range hashes {
		counts[h]++
	}
	return counts
}

func sameHashMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	return sameHashSequence(sortedA, sortedB)
}

func sameHashSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
