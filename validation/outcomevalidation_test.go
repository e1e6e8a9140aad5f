package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/core"
	"github.com/cloudx-io/secondprice/settlement"
)

type signedAuction struct {
	publicKeyPEM string
	proof        auctionapi.ProofCOSE
	response     auctionapi.AuctionResponse
}

func runSignedAuction(t *testing.T, req auctionapi.AuctionRequest) signedAuction {
	t.Helper()

	keyManager, err := settlement.NewKeyManager("validator-test")
	assert.NoError(t, err)
	publicKeyPEM, err := keyManager.PublicKeyPEM()
	assert.NoError(t, err)

	response := settlement.ProcessAuction(keyManager, req)
	assert.True(t, response.Success)

	proof, err := response.ProofCOSEBase64.Decode()
	assert.NoError(t, err)

	return signedAuction{publicKeyPEM: publicKeyPEM, proof: proof, response: response}
}

func batchRequest() auctionapi.AuctionRequest {
	return auctionapi.AuctionRequest{
		Type:         auctionapi.TypeAuctionRequest,
		AuctionID:    "auction-1",
		Mode:         auctionapi.ModeBatch,
		ReservePrice: 100,
		BuyerBids:    json.RawMessage(`[[110,130],[],[125],[105,115,90],[132,135,140]]`),
	}
}

func batchBids() []core.Bid {
	return []core.Bid{
		{BuyerID: 0, Value: 110}, {BuyerID: 0, Value: 130},
		{BuyerID: 2, Value: 125},
		{BuyerID: 3, Value: 105}, {BuyerID: 3, Value: 115}, {BuyerID: 3, Value: 90},
		{BuyerID: 4, Value: 132}, {BuyerID: 4, Value: 135}, {BuyerID: 4, Value: 140},
	}
}

func ptr(v float64) *float64 { return &v }

func TestValidateOutcome_WinnerPasses(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		AuctionID:     "auction-1",
		OwnBids:       []core.Bid{{BuyerID: 4, Value: 132}, {BuyerID: 4, Value: 135}, {BuyerID: 4, Value: 140}},
		DisclosedBids: batchBids(),
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.True(t, result.SignatureValid)
	check.True(t, result.AuctionIDValid)
	check.True(t, result.BidInclusionValid)
	check.True(t, result.ClearingPriceValid)
	check.True(t, result.WinnerValid)
	check.True(t, result.RecomputationValid)
	check.True(t, result.IsValid())
}

func TestValidateOutcome_LoserPasses(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		OwnBids:       []core.Bid{{BuyerID: 2, Value: 125}},
		BuyerID:       2,
		IsWinner:      false,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}

func TestValidateOutcome_WrongKeyFailsSignature(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	otherKey, err := settlement.NewKeyManager("other")
	assert.NoError(t, err)
	otherPEM, err := otherKey.PublicKeyPEM()
	assert.NoError(t, err)

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  otherPEM,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.SignatureValid)
	check.True(t, result.WinnerValid)
	check.False(t, result.IsValid())
}

func TestValidateOutcome_ForeignBidNotIncluded(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		OwnBids:       []core.Bid{{BuyerID: 1, Value: 200}},
		BuyerID:       1,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.BidInclusionValid)
	check.False(t, result.IsValid())
}

func TestValidateOutcome_DuplicateOwnBidNeedsTwoHashes(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		OwnBids:       []core.Bid{{BuyerID: 2, Value: 125}, {BuyerID: 2, Value: 125}},
		BuyerID:       2,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.BidInclusionValid)
}

func TestValidateOutcome_ClearingPriceMismatch(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(135),
	})
	assert.NoError(t, err)
	check.False(t, result.ClearingPriceValid)
	check.True(t, result.WinnerValid)
}

func TestValidateOutcome_ClearingPriceComparedAtMonetaryPrecision(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130.00001),
	})
	assert.NoError(t, err)
	check.True(t, result.ClearingPriceValid)
}

func TestValidateOutcome_NoWinnerExpected(t *testing.T) {
	req := batchRequest()
	req.ReservePrice = 500
	signed := runSignedAuction(t, req)

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		DisclosedBids: batchBids(),
		BuyerID:       4,
	})
	assert.NoError(t, err)
	check.True(t, result.ClearingPriceValid)
	check.True(t, result.WinnerValid)
	check.True(t, result.RecomputationValid)
	check.True(t, result.IsValid())
}

func TestValidateOutcome_WinnerExpectationWrong(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		BuyerID:       0,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.WinnerValid)
}

func TestValidateOutcome_AuctionIDMismatch(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		AuctionID:     "auction-2",
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.AuctionIDValid)
	check.False(t, result.IsValid())
}

func TestValidateOutcome_BatchDisclosureOrderIndependent(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	bids := batchBids()
	reversed := make([]core.Bid, 0, len(bids))
	for i := len(bids) - 1; i >= 0; i-- {
		reversed = append(reversed, bids[i])
	}

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		DisclosedBids: reversed,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.True(t, result.RecomputationValid)
}

func TestValidateOutcome_BatchDisclosureMissingBid(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	bids := batchBids()
	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		DisclosedBids: bids[:len(bids)-1],
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.RecomputationValid)
}

func streamRequest() auctionapi.AuctionRequest {
	return auctionapi.AuctionRequest{
		Type:         auctionapi.TypeAuctionRequest,
		AuctionID:    "stream-1",
		Mode:         auctionapi.ModeStream,
		ReservePrice: 100,
		BuyerCount:   5,
		Bids: json.RawMessage(`[
			{"buyer_id":0,"value":110},{"buyer_id":2,"value":125},{"buyer_id":4,"value":132},
			{"buyer_id":0,"value":130},{"buyer_id":9,"value":999},{"buyer_id":4,"value":140}
		]`),
	}
}

// streamApplied is streamRequest's bids minus the out-of-range buyer 9.
func streamApplied() []core.Bid {
	return []core.Bid{
		{BuyerID: 0, Value: 110}, {BuyerID: 2, Value: 125}, {BuyerID: 4, Value: 132},
		{BuyerID: 0, Value: 130}, {BuyerID: 4, Value: 140},
	}
}

func TestValidateOutcome_StreamReplayPasses(t *testing.T) {
	signed := runSignedAuction(t, streamRequest())
	check.Equal(t, 1, signed.response.IgnoredBids)

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		OwnBids:       []core.Bid{{BuyerID: 4, Value: 132}, {BuyerID: 4, Value: 140}},
		DisclosedBids: streamApplied(),
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.True(t, result.RecomputationValid)
	check.True(t, result.IsValid())
}

func TestValidateOutcome_StreamReorderedDisclosureFails(t *testing.T) {
	signed := runSignedAuction(t, streamRequest())

	bids := streamApplied()
	bids[0], bids[1] = bids[1], bids[0]

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         signed.proof,
		PublicKeyPEM:  signed.publicKeyPEM,
		DisclosedBids: bids,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(130),
	})
	assert.NoError(t, err)
	check.False(t, result.RecomputationValid)
	check.True(t, result.WinnerValid)
}

func TestValidateOutcome_TamperedResultFailsSignature(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	proof, err := signed.proof.ParseProof()
	assert.NoError(t, err)

	forgedKey, err := settlement.NewKeyManager(proof.KeyID)
	assert.NoError(t, err)
	price := 101.0
	proof.Result.WinningPrice = &price
	forged, err := settlement.SignProof(forgedKey, proof)
	assert.NoError(t, err)

	result, err := ValidateOutcome(&OutcomeValidationInput{
		Proof:         forged,
		PublicKeyPEM:  signed.publicKeyPEM,
		BuyerID:       4,
		IsWinner:      true,
		ClearingPrice: ptr(101),
	})
	assert.NoError(t, err)
	check.False(t, result.SignatureValid)
	check.False(t, result.RecomputationValid) // result hash no longer matches
	check.False(t, result.IsValid())
}

func TestValidateOutcome_MalformedProof(t *testing.T) {
	_, err := ValidateOutcome(&OutcomeValidationInput{Proof: auctionapi.ProofCOSE("not cose")})
	check.Error(t, err)

	_, err = ValidateOutcome(nil)
	check.Error(t, err)
}

func TestVerifyCOSESignature_BadPEM(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	_, err := VerifyCOSESignature(signed.proof, "not a pem")
	check.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "no PEM block"))
}

func TestVerifyCOSESignature_ReturnsKeyID(t *testing.T) {
	signed := runSignedAuction(t, batchRequest())

	keyID, err := VerifyCOSESignature(signed.proof, signed.publicKeyPEM)
	assert.NoError(t, err)
	check.Equal(t, "validator-test", keyID)
}
