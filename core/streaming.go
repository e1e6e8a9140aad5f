package core

import (
	"fmt"
	"sync"
)

// Transition returns the state after receiving bid.
//
// Rules, in priority order:
//  1. First bid ever: it leads.
//  2. Bid from the leader: it replaces the lead if it is at least as high,
//     otherwise it is ignored. A buyer never competes with itself, so the
//     runner-up is untouched either way.
//  3. Bid from another buyer that outranks the leader under CompareBids:
//     the old leader becomes the runner-up and the bid leads. A bid equal in
//     value to the leader's takes the lead only if its buyer id is larger.
//  4. Bid from another buyer that does not outrank the leader: it becomes
//     the runner-up if it is at least as high as the current one.
//
// Transition does not validate bid; callers ingest through StreamingAuction.
func Transition(state AuctionState, bid Bid) AuctionState {
	switch {
	case state.Highest == nil:
		state.Highest = &bid
	case bid.BuyerID == state.Highest.BuyerID:
		if bid.Value >= state.Highest.Value {
			state.Highest = &bid
		}
	case CompareBids(bid, *state.Highest) > 0:
		state.RunnerUp = state.Highest
		state.Highest = &bid
	case state.RunnerUp == nil || bid.Value >= state.RunnerUp.Value:
		state.RunnerUp = &bid
	}
	return state
}

// Winner projects the state onto an outcome under the given reserve price.
func (s AuctionState) Winner(reservePrice float64) WinnerResult {
	if s.Highest == nil || !BidMeetsReserve(s.Highest.Value, reservePrice) {
		return NoWinner()
	}

	price := reservePrice
	if s.RunnerUp != nil {
		price = max(reservePrice, s.RunnerUp.Value)
	}
	return newWinnerResult(s.Highest.BuyerID, price)
}

// StreamingOption configures a StreamingAuction.
type StreamingOption func(*StreamingAuction)

// WithStrictBuyerRange makes Ingest fail with ErrUnknownBuyer for buyer ids
// outside [0, buyerCount) instead of silently dropping the bid.
func WithStrictBuyerRange() StreamingOption {
	return func(a *StreamingAuction) {
		a.strictBuyerRange = true
	}
}

// StreamingAuction answers "who wins now, at what price" after every bid
// without keeping bid history. It is safe for concurrent use: ingestion is
// serialized and reads observe every completed Ingest.
type StreamingAuction struct {
	reservePrice     float64
	buyerCount       int
	strictBuyerRange bool

	mtx        sync.RWMutex
	state      AuctionState
	transcript *Transcript
	ignored    int
}

// NewStreamingAuction validates the reserve price and the buyer count.
func NewStreamingAuction(reservePrice float64, buyerCount int, opts ...StreamingOption) (*StreamingAuction, error) {
	if err := ValidateReservePrice(reservePrice); err != nil {
		return nil, err
	}
	if err := ValidateBuyerCount(buyerCount); err != nil {
		return nil, err
	}

	a := &StreamingAuction{
		reservePrice: reservePrice,
		buyerCount:   buyerCount,
		transcript:   NewTranscript(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ReservePrice returns the auction's reserve price.
func (a *StreamingAuction) ReservePrice() float64 {
	return a.reservePrice
}

// BuyerCount returns the number of buyers allowed to bid.
func (a *StreamingAuction) BuyerCount() int {
	return a.buyerCount
}

// Ingest applies one bid.
// Bids from buyer ids >= BuyerCount are dropped without error unless the
// auction was created WithStrictBuyerRange.
func (a *StreamingAuction) Ingest(bid Bid) error {
	if err := validateBid(bid); err != nil {
		return err
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	if bid.BuyerID >= a.buyerCount {
		if a.strictBuyerRange {
			return fmt.Errorf("%w: buyer id %d, auction has %d buyers", ErrUnknownBuyer, bid.BuyerID, a.buyerCount)
		}
		a.ignored++
		return nil
	}

	a.state = Transition(a.state, bid)
	a.transcript.Add(bid)
	return nil
}

// IngestAll applies bids in order and stops at the first invalid one.
// Bids before the failing one stay applied.
func (a *StreamingAuction) IngestAll(bids []Bid) error {
	for i, bid := range bids {
		if err := a.Ingest(bid); err != nil {
			return fmt.Errorf("bid %d: %w", i, err)
		}
	}
	return nil
}

// CurrentWinner returns the outcome over every bid ingested so far.
func (a *StreamingAuction) CurrentWinner() WinnerResult {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	return a.state.Winner(a.reservePrice)
}

// State returns a snapshot of the auction state. The snapshot owns its
// bids; changing it does not affect the auction.
func (a *StreamingAuction) State() AuctionState {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	snapshot := a.state
	if snapshot.Highest != nil {
		highest := *snapshot.Highest
		snapshot.Highest = &highest
	}
	if snapshot.RunnerUp != nil {
		runnerUp := *snapshot.RunnerUp
		snapshot.RunnerUp = &runnerUp
	}
	return snapshot
}

// Stats returns how many bids were applied and how many were dropped for an
// out-of-range buyer id.
func (a *StreamingAuction) Stats() (accepted, ignored int) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	return a.transcript.Count(), a.ignored
}

// TranscriptDigest returns the BLAKE3 digest of the applied bids in arrival
// order. Dropped bids are not part of it.
func (a *StreamingAuction) TranscriptDigest() string {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	return a.transcript.Digest()
}

// Replay feeds bids to a fresh streaming auction and returns the final outcome.
func Replay(reservePrice float64, buyerCount int, bids []Bid) (WinnerResult, error) {
	auction, err := NewStreamingAuction(reservePrice, buyerCount)
	if err != nil {
		return WinnerResult{}, err
	}
	if err := auction.IngestAll(bids); err != nil {
		return WinnerResult{}, err
	}
	return auction.CurrentWinner(), nil
}
