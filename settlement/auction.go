package settlement

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/auctionapi/parsing"
	"github.com/cloudx-io/secondprice/core"
)

// outcome is what running either engine produces before it is signed.
type outcome struct {
	buyerCount       int
	bids             []core.Bid // every bid the engine applied, in input order
	result           core.WinnerResult
	steps            []auctionapi.StreamStep
	belowReserve     int
	ignored          int
	transcriptDigest string
}

// ProcessAuction runs one auction request and, when keyManager is not nil,
// attaches a signed outcome proof. Failures are reported in the response,
// never as a panic or error return.
func ProcessAuction(keyManager *KeyManager, req auctionapi.AuctionRequest) auctionapi.AuctionResponse {
	startTime := time.Now()

	auctionID := req.AuctionID
	if auctionID == "" {
		auctionID = uuid.NewString()
	}
	mode := req.Mode
	if mode == "" {
		mode = auctionapi.ModeBatch
	}

	fail := func(err error) auctionapi.AuctionResponse {
		log.Printf("ERROR: Auction %s failed: %v", auctionID, err)
		return auctionapi.AuctionResponse{
			Type:           auctionapi.TypeAuctionResponse,
			Success:        false,
			Message:        err.Error(),
			AuctionID:      auctionID,
			Mode:           mode,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	if req.Type != "" && req.Type != auctionapi.TypeAuctionRequest {
		return fail(fmt.Errorf("unsupported request type %q", req.Type))
	}
	if err := core.ValidateReservePrice(req.ReservePrice); err != nil {
		return fail(err)
	}

	log.Printf("INFO: Processing %s auction %s (reserve %s)", mode, auctionID, core.FormatPrice(req.ReservePrice))

	var out *outcome
	var err error
	switch mode {
	case auctionapi.ModeBatch:
		out, err = runBatch(req)
	case auctionapi.ModeStream:
		out, err = runStream(req)
	default:
		err = fmt.Errorf("unknown auction mode %q", mode)
	}
	if err != nil {
		return fail(err)
	}

	var proofB64 auctionapi.ProofCOSEBase64
	if keyManager != nil {
		proof, err := generateOutcomeProof(keyManager, proofInput{
			auctionID:        auctionID,
			mode:             mode,
			reservePrice:     req.ReservePrice,
			buyerCount:       out.buyerCount,
			bids:             out.bids,
			transcriptDigest: out.transcriptDigest,
			result:           out.result,
		})
		if err != nil {
			return fail(fmt.Errorf("proof generation failed: %w", err))
		}
		proofB64 = proof.EncodeBase64()
	}

	processingTime := time.Since(startTime).Milliseconds()
	log.Printf("INFO: Auction %s complete: %s, %d bids (%d below reserve, %d ignored), processing=%dms",
		auctionID, out.result, len(out.bids), out.belowReserve, out.ignored, processingTime)

	result := out.result
	return auctionapi.AuctionResponse{
		Type:             auctionapi.TypeAuctionResponse,
		Success:          true,
		Message:          fmt.Sprintf("Processed %d bids", len(out.bids)+out.ignored),
		AuctionID:        auctionID,
		Mode:             mode,
		Result:           &result,
		Steps:            out.steps,
		BelowReserveBids: out.belowReserve,
		IgnoredBids:      out.ignored,
		ProofCOSEBase64:  proofB64,
		ProcessingTime:   processingTime,
	}
}

func runBatch(req auctionapi.AuctionRequest) (*outcome, error) {
	buyerBids, err := parsing.ParseBuyerBids(req.BuyerBids)
	if err != nil {
		return nil, err
	}

	auction, err := core.NewAuction(req.ReservePrice, buyerBids)
	if err != nil {
		return nil, err
	}

	bids := auction.FlattenBids()
	_, rejected := core.EnforceReservePrice(bids, auction.ReservePrice())

	return &outcome{
		buyerCount:   auction.BuyerCount(),
		bids:         bids,
		result:       auction.Winner(),
		belowReserve: len(rejected),
	}, nil
}

func runStream(req auctionapi.AuctionRequest) (*outcome, error) {
	bids, err := parsing.ParseStreamBids(req.Bids)
	if err != nil {
		return nil, err
	}

	var opts []core.StreamingOption
	if req.StrictBuyerRange {
		opts = append(opts, core.WithStrictBuyerRange())
	}
	auction, err := core.NewStreamingAuction(req.ReservePrice, req.BuyerCount, opts...)
	if err != nil {
		return nil, err
	}

	applied := make([]core.Bid, 0, len(bids))
	steps := make([]auctionapi.StreamStep, 0, len(bids))
	for i, bid := range bids {
		if err := auction.Ingest(bid); err != nil {
			return nil, fmt.Errorf("bid %d: %w", i, err)
		}
		if bid.BuyerID < auction.BuyerCount() {
			applied = append(applied, bid)
		}
		steps = append(steps, auctionapi.StreamStep{Bid: bid, Result: auction.CurrentWinner()})
	}

	_, ignored := auction.Stats()
	_, rejected := core.EnforceReservePrice(applied, auction.ReservePrice())

	return &outcome{
		buyerCount:       auction.BuyerCount(),
		bids:             applied,
		result:           auction.CurrentWinner(),
		steps:            steps,
		belowReserve:     len(rejected),
		ignored:          ignored,
		transcriptDigest: auction.TranscriptDigest(),
	}, nil
}
