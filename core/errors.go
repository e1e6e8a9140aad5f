package core

import "errors"

// Input validation failures. Every error returned by this package wraps one
// of these; match them with errors.Is.
var (
	ErrInvalidReservePrice  = errors.New("invalid reserve price")
	ErrInvalidBuyerCount    = errors.New("invalid buyer count")
	ErrInvalidBidCollection = errors.New("invalid bid collection")
	ErrInvalidBid           = errors.New("invalid bid")

	// ErrUnknownBuyer is only returned by streaming auctions created with
	// WithStrictBuyerRange. By default such bids are ignored.
	ErrUnknownBuyer = errors.New("unknown buyer")
)
