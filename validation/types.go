package validation

import (
	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/core"
)

// OutcomeValidationInput contains everything needed to validate an outcome proof
type OutcomeValidationInput struct {
	Proof        auctionapi.ProofCOSE
	PublicKeyPEM string // settlement signing key
	AuctionID    string // expected auction id, empty = don't check

	OwnBids       []core.Bid // bids the caller placed; each must be committed to by the proof
	DisclosedBids []core.Bid // every bid of the auction if known, nil = skip recomputation

	BuyerID       int      // the caller's buyer id
	IsWinner      bool     // expected result for BuyerID
	ClearingPrice *float64 // nil = no winner expected, non-nil = winner with this price
}

// OutcomeValidationResult contains the result of each check
type OutcomeValidationResult struct {
	SignatureValid     bool
	AuctionIDValid     bool
	BidInclusionValid  bool
	ClearingPriceValid bool
	WinnerValid        bool
	RecomputationValid bool
	ValidationDetails  []string
}

// IsValid returns true if all validation checks passed
func (r *OutcomeValidationResult) IsValid() bool {
	return r.SignatureValid && r.AuctionIDValid && r.BidInclusionValid &&
		r.ClearingPriceValid && r.WinnerValid && r.RecomputationValid
}
