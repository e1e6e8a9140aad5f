package parsing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cloudx-io/secondprice/core"
)

var jsonNull = []byte("null")

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

// ParseBuyerBids decodes a batch bid collection: a JSON array of arrays of
// numbers. Anything else, including null lists or null values, fails with
// core.ErrInvalidBidCollection. Value ranges are checked too.
func ParseBuyerBids(raw json.RawMessage) (core.BuyerBidSet, error) {
	if isAbsent(raw) {
		return nil, fmt.Errorf("%w: missing buyer bids", core.ErrInvalidBidCollection)
	}

	var buyers []json.RawMessage
	if err := json.Unmarshal(raw, &buyers); err != nil {
		return nil, fmt.Errorf("%w: buyer bids must be a list of lists of numbers: %v", core.ErrInvalidBidCollection, err)
	}

	buyerBids := make(core.BuyerBidSet, len(buyers))
	for buyer, rawValues := range buyers {
		if isAbsent(rawValues) {
			return nil, fmt.Errorf("%w: bids of buyer %d must be a list, got null", core.ErrInvalidBidCollection, buyer)
		}

		var values []*float64
		if err := json.Unmarshal(rawValues, &values); err != nil {
			return nil, fmt.Errorf("%w: bids of buyer %d must be a list of numbers: %v", core.ErrInvalidBidCollection, buyer, err)
		}

		buyerBids[buyer] = make([]float64, len(values))
		for i, v := range values {
			if v == nil {
				return nil, fmt.Errorf("%w: bid %d of buyer %d is null", core.ErrInvalidBidCollection, i, buyer)
			}
			buyerBids[buyer][i] = *v
		}
	}

	if err := core.ValidateBuyerBidSet(buyerBids); err != nil {
		return nil, err
	}
	return buyerBids, nil
}

type rawStreamBid struct {
	BuyerID *int     `json:"buyer_id"`
	Value   *float64 `json:"value"`
}

// ParseStreamBids decodes an ordered list of {"buyer_id", "value"} objects.
// A missing or null list fails with core.ErrInvalidBidCollection, like
// ParseBuyerBids; an auction without bids is sent as []. Malformed or
// out-of-range entries fail with core.ErrInvalidBid. Buyer ids beyond the
// auction's buyer count are left for the streaming engine to handle.
func ParseStreamBids(raw json.RawMessage) ([]core.Bid, error) {
	if isAbsent(raw) {
		return nil, fmt.Errorf("%w: missing bids", core.ErrInvalidBidCollection)
	}

	var entries []rawStreamBid
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: bids must be a list of {buyer_id, value} objects: %v", core.ErrInvalidBid, err)
	}

	bids := make([]core.Bid, 0, len(entries))
	for i, entry := range entries {
		if entry.BuyerID == nil || entry.Value == nil {
			return nil, fmt.Errorf("%w: bid %d must have buyer_id and value", core.ErrInvalidBid, i)
		}
		bid, err := core.NewBid(*entry.BuyerID, *entry.Value)
		if err != nil {
			return nil, fmt.Errorf("bid %d: %w", i, err)
		}
		bids = append(bids, bid)
	}
	return bids, nil
}
