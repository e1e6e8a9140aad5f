package core

import (
	"fmt"
	"math"
)

// MonetaryPrecision is the number of decimal places prices are rendered and
// compared with outside the engines (0.0001 precision).
const MonetaryPrecision int32 = 4

// isNonNegativeReal reports whether v is a finite number >= 0.
func isNonNegativeReal(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ValidateReservePrice returns an ErrInvalidReservePrice error unless the
// reserve price is a finite number >= 0.
func ValidateReservePrice(reservePrice float64) error {
	if !isNonNegativeReal(reservePrice) {
		return fmt.Errorf("%w: %v must be a non-negative real number", ErrInvalidReservePrice, reservePrice)
	}
	return nil
}

// ValidateBuyerCount returns an ErrInvalidBuyerCount error unless count > 0.
func ValidateBuyerCount(count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: %d must be strictly positive", ErrInvalidBuyerCount, count)
	}
	return nil
}

// ValidateBuyerBidSet checks every bid value of a batch auction.
// A nil set is an auction without bids and is valid.
func ValidateBuyerBidSet(buyerBids BuyerBidSet) error {
	for buyer, values := range buyerBids {
		for i, v := range values {
			if !isNonNegativeReal(v) {
				return fmt.Errorf("%w: bid %d of buyer %d is %v, must be a non-negative real number",
					ErrInvalidBidCollection, i, buyer, v)
			}
		}
	}
	return nil
}

func validateBid(bid Bid) error {
	if bid.BuyerID < 0 {
		return fmt.Errorf("%w: buyer id %d must not be negative", ErrInvalidBid, bid.BuyerID)
	}
	if !isNonNegativeReal(bid.Value) {
		return fmt.Errorf("%w: value %v of buyer %d must be a non-negative real number", ErrInvalidBid, bid.Value, bid.BuyerID)
	}
	return nil
}

// BidMeetsReserve returns true if the bid value meets or exceeds the reserve.
// The comparison is plain float64: a bid strictly below the reserve never
// clears, however close it is.
func BidMeetsReserve(value, reservePrice float64) bool {
	return value >= reservePrice
}

// EnforceReservePrice splits bids into those that meet the reserve and those
// that do not. Order is preserved in both slices.
func EnforceReservePrice(bids []Bid, reservePrice float64) (eligible, rejected []Bid) {
	eligible = make([]Bid, 0, len(bids))
	rejected = make([]Bid, 0)

	for _, bid := range bids {
		if BidMeetsReserve(bid.Value, reservePrice) {
			eligible = append(eligible, bid)
		} else {
			rejected = append(rejected, bid)
		}
	}

	return eligible, rejected
}
