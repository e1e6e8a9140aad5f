package parsing

import (
	"fmt"

	"github.com/veraison/go-cose"
)

// DecodeSign1 parses a tagged or untagged COSE_Sign1 message.
func DecodeSign1(coseBytes []byte) (*cose.Sign1Message, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err == nil {
		return &msg, nil
	}

	var untagged cose.UntaggedSign1Message
	if err := untagged.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}
	tagged := cose.Sign1Message(untagged)
	return &tagged, nil
}

// ExtractCOSEPayload returns the payload of a COSE_Sign1 message without
// verifying its signature.
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	msg, err := DecodeSign1(coseBytes)
	if err != nil {
		return nil, err
	}
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}
	return msg.Payload, nil
}
