package core

import (
	"fmt"
	"slices"
)

// Auction is a validated batch auction: a reserve price and every bid,
// known upfront.
type Auction struct {
	reservePrice float64
	buyerBids    BuyerBidSet
}

// NewAuction validates the reserve price and the bid collection.
// The bid collection is copied, so later changes by the caller have no effect.
func NewAuction(reservePrice float64, buyerBids BuyerBidSet) (*Auction, error) {
	if err := ValidateReservePrice(reservePrice); err != nil {
		return nil, err
	}
	if err := ValidateBuyerBidSet(buyerBids); err != nil {
		return nil, err
	}

	owned := make(BuyerBidSet, len(buyerBids))
	for i, values := range buyerBids {
		owned[i] = append([]float64(nil), values...)
	}

	return &Auction{reservePrice: reservePrice, buyerBids: owned}, nil
}

// ReservePrice returns the auction's reserve price.
func (a *Auction) ReservePrice() float64 {
	return a.reservePrice
}

// BuyerCount returns the number of buyers, including buyers without bids.
func (a *Auction) BuyerCount() int {
	return len(a.buyerBids)
}

// FlattenBids returns one Bid per bid value, tagged with its buyer's index.
func (a *Auction) FlattenBids() []Bid {
	bids := make([]Bid, 0)
	for buyer, values := range a.buyerBids {
		for _, v := range values {
			bids = append(bids, Bid{BuyerID: buyer, Value: v})
		}
	}
	return bids
}

// SortedBids returns the flattened bids in ascending (Value, BuyerID) order.
func (a *Auction) SortedBids() []Bid {
	bids := a.FlattenBids()
	SortBids(bids)
	return bids
}

// Winner computes the outcome of the auction.
func (a *Auction) Winner() WinnerResult {
	return winnerFromSorted(a.reservePrice, a.SortedBids())
}

// ComputeWinner runs a batch auction.
//
// Parameters:
//   - reservePrice: floor below which nothing is sold
//   - buyerBids: bids grouped by buyer, buyer identity is the outer index
//
// Returns:
//   - WinnerResult with the winning buyer and price, or NoWinner()
//   - ErrInvalidReservePrice / ErrInvalidBidCollection on invalid input
//
// Processing flow:
//  1. Flatten bids into (buyer, value) pairs
//  2. Sort ascending by value, then buyer id
//  3. The last pair wins if it meets the reserve
//  4. The price is the reserve, raised to the best bid of any other buyer
func ComputeWinner(reservePrice float64, buyerBids BuyerBidSet) (WinnerResult, error) {
	auction, err := NewAuction(reservePrice, buyerBids)
	if err != nil {
		return WinnerResult{}, err
	}
	return auction.Winner(), nil
}

// ComputeWinnerFromBids runs the batch algorithm over bids carrying explicit
// buyer ids, e.g. the bids a streaming auction has received.
func ComputeWinnerFromBids(reservePrice float64, bids []Bid) (WinnerResult, error) {
	if err := ValidateReservePrice(reservePrice); err != nil {
		return WinnerResult{}, err
	}

	sorted := make([]Bid, len(bids))
	for i, bid := range bids {
		if err := validateBid(bid); err != nil {
			return WinnerResult{}, fmt.Errorf("%w: bid %d: %v", ErrInvalidBidCollection, i, err)
		}
		sorted[i] = bid
	}
	SortBids(sorted)

	return winnerFromSorted(reservePrice, sorted), nil
}

// CompareBids orders bids by value, then by buyer id. Among equal values the
// larger buyer id ranks higher.
func CompareBids(a, b Bid) int {
	switch {
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	case a.BuyerID < b.BuyerID:
		return -1
	case a.BuyerID > b.BuyerID:
		return 1
	default:
		return 0
	}
}

// SortBids sorts bids in place, ascending by (Value, BuyerID).
func SortBids(bids []Bid) {
	slices.SortFunc(bids, CompareBids)
}

// winnerFromSorted expects bids sorted by SortBids.
func winnerFromSorted(reservePrice float64, sorted []Bid) WinnerResult {
	if len(sorted) == 0 {
		return NoWinner()
	}

	highest := sorted[len(sorted)-1]
	if !BidMeetsReserve(highest.Value, reservePrice) {
		return NoWinner()
	}

	price := reservePrice
	// Still sorted, so the first bid from another buyer walking down is the
	// best competing bid.
	for i := len(sorted) - 2; i >= 0; i-- {
		if sorted[i].BuyerID != highest.BuyerID {
			price = max(reservePrice, sorted[i].Value)
			break
		}
	}

	return newWinnerResult(highest.BuyerID, price)
}
