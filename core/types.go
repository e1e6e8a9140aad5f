package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bid represents a single sealed offer by one buyer.
// Bids are values: state updates replace a Bid, they never mutate one.
type Bid struct {
	BuyerID int     `json:"buyer_id" cbor:"buyer_id"`
	Value   float64 `json:"value" cbor:"value"`
}

// NewBid returns a validated Bid.
// Fails with ErrInvalidBid if the buyer id is negative or the value is not a
// non-negative real number.
func NewBid(buyerID int, value float64) (Bid, error) {
	bid := Bid{BuyerID: buyerID, Value: value}
	if err := validateBid(bid); err != nil {
		return Bid{}, err
	}
	return bid, nil
}

// BuyerBidSet holds every bid of a batch auction, grouped by buyer.
// A buyer's identity is its index in the outer slice.
type BuyerBidSet [][]float64

// WinnerResult is the outcome of an auction.
// WinningBuyer and WinningPrice are either both set or both nil.
type WinnerResult struct {
	WinningBuyer *int     `json:"winning_buyer" cbor:"winning_buyer"`
	WinningPrice *float64 `json:"winning_price" cbor:"winning_price"`
}

// NoWinner returns the result of an auction in which nothing was sold.
func NoWinner() WinnerResult {
	return WinnerResult{}
}

func newWinnerResult(buyer int, price float64) WinnerResult {
	return WinnerResult{WinningBuyer: &buyer, WinningPrice: &price}
}

// HasWinner reports whether the auction cleared.
func (r WinnerResult) HasWinner() bool {
	return r.WinningBuyer != nil && r.WinningPrice != nil
}

// Winner unpacks the result. ok is false when there is no winner.
func (r WinnerResult) Winner() (buyer int, price float64, ok bool) {
	if !r.HasWinner() {
		return 0, 0, false
	}
	return *r.WinningBuyer, *r.WinningPrice, true
}

// Equal compares two results by value.
func (r WinnerResult) Equal(other WinnerResult) bool {
	buyer, price, ok := r.Winner()
	otherBuyer, otherPrice, otherOK := other.Winner()
	if ok != otherOK {
		return false
	}
	return !ok || (buyer == otherBuyer && price == otherPrice)
}

// String renders the result for logs and CLI output.
func (r WinnerResult) String() string {
	buyer, price, ok := r.Winner()
	if !ok {
		return "no winner"
	}
	return fmt.Sprintf("buyer #%d at %s", buyer, FormatPrice(price))
}

// FormatPrice renders a price with MonetaryPrecision decimal places.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(MonetaryPrecision)
}

// AuctionState is the complete state a streaming auction keeps.
//
// Highest is the best bid seen so far under the (Value, BuyerID) order.
// RunnerUp is the highest-valued bid from any buyer other than
// Highest.BuyerID. A nil slot means no such bid has been seen.
type AuctionState struct {
	Highest  *Bid `json:"highest,omitempty" cbor:"highest,omitempty"`
	RunnerUp *Bid `json:"runner_up,omitempty" cbor:"runner_up,omitempty"`
}
