package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/auctionapi/parsing"
	"github.com/cloudx-io/secondprice/core"
	"github.com/cloudx-io/secondprice/validation"
)

// gzipBase64Prefix is how every base64-encoded gzip stream starts.
const gzipBase64Prefix = "H4sI"

// notification is what a buyer learns after the auction closes.
type notification struct {
	AuctionID     string          `json:"auction_id"`
	BuyerID       int             `json:"buyer_id"`
	IsWinner      bool            `json:"is_winner"`
	ClearingPrice *float64        `json:"clearing_price"`
	Proof         string          `json:"proof"`
	OwnBids       json.RawMessage `json:"own_bids"`
}

func main() {
	var (
		notificationInput = flag.String("notification", "", "Outcome notification JSON (file path or inline JSON)")
		publicKeyInput    = flag.String("public-key", "", "Settlement public key PEM (file path or inline PEM)")
		disclosedInput    = flag.String("disclosed", "", "All bids of the auction as JSON (file path or inline JSON), enables recomputation")
		outputFormat      = flag.String("format", "text", "Output format: text or json")
		help              = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *notificationInput == "" || *publicKeyInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --notification and --public-key are required\n")
		os.Exit(1)
	}

	notificationJSON, err := readInput(*notificationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading notification: %v\n", err)
		os.Exit(2)
	}

	publicKeyPEM, err := readInput(*publicKeyInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	var disclosedJSON []byte
	if *disclosedInput != "" {
		disclosedJSON, err = readInput(*disclosedInput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading disclosed bids: %v\n", err)
			os.Exit(2)
		}
	}

	validationInput, err := extractValidationInput(notificationJSON, string(publicKeyPEM), disclosedJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}

	result, err := validation.ValidateOutcome(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Second-Price Auction Outcome Validator")
	fmt.Println()
	fmt.Println("Verifies a signed auction outcome proof from a buyer's point of view.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  outcome-validator --notification <json> --public-key <pem> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --notification <json>             Outcome notification (see below)")
	fmt.Println("  --public-key <pem>                Settlement public key")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --disclosed <json>                Every bid of the auction, [{\"buyer_id\":0,\"value\":110}, ...]")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each flag accepts either a file path or an inline value.")
	fmt.Println()
	fmt.Println("Notification:")
	fmt.Println("  {")
	fmt.Println("    \"auction_id\": \"auction-123\",")
	fmt.Println("    \"buyer_id\": 4,")
	fmt.Println("    \"is_winner\": true,")
	fmt.Println("    \"clearing_price\": 130,                          // or null if no winner")
	fmt.Println("    \"own_bids\": [{\"buyer_id\":4,\"value\":140}],")
	fmt.Println("    \"proof\": \"H4sIAAAA...\"                          // gzip base64url or plain base64")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline value
	return []byte(input), nil
}

func extractValidationInput(notificationJSON []byte, publicKeyPEM string, disclosedJSON []byte) (*validation.OutcomeValidationInput, error) {
	var n notification
	if err := json.Unmarshal(notificationJSON, &n); err != nil {
		return nil, fmt.Errorf("parse notification: %w", err)
	}

	if n.Proof == "" {
		return nil, fmt.Errorf("missing or invalid 'proof' in notification")
	}
	proof, err := decodeProof(n.Proof)
	if err != nil {
		return nil, err
	}

	var ownBids []core.Bid
	if n.OwnBids != nil {
		ownBids, err = parsing.ParseStreamBids(n.OwnBids)
		if err != nil {
			return nil, fmt.Errorf("parse own bids: %w", err)
		}
	}

	input := &validation.OutcomeValidationInput{
		Proof:         proof,
		PublicKeyPEM:  publicKeyPEM,
		AuctionID:     n.AuctionID,
		OwnBids:       ownBids,
		BuyerID:       n.BuyerID,
		IsWinner:      n.IsWinner,
		ClearingPrice: n.ClearingPrice,
	}

	if disclosedJSON != nil {
		disclosed, err := parsing.ParseStreamBids(disclosedJSON)
		if err != nil {
			return nil, fmt.Errorf("parse disclosed bids: %w", err)
		}
		input.DisclosedBids = disclosed
	}

	return input, nil
}

// decodeProof accepts the gzip form from notifications or plain base64
// from auction responses.
func decodeProof(s string) (auctionapi.ProofCOSE, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, gzipBase64Prefix) {
		return auctionapi.ProofCOSEGzip(s).Decompress()
	}
	return auctionapi.ProofCOSEBase64(s).Decode()
}

func outputText(result *validation.OutcomeValidationResult) {
	fmt.Println("Second-Price Auction Outcome Validator")
	fmt.Println("======================================")
	fmt.Println()

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Auction ID Valid:        %v\n", result.AuctionIDValid)
	fmt.Printf("  Bid Inclusion Valid:     %v\n", result.BidInclusionValid)
	fmt.Printf("  Clearing Price Valid:    %v\n", result.ClearingPriceValid)
	fmt.Printf("  Winner Valid:            %v\n", result.WinnerValid)
	fmt.Printf("  Recomputation Valid:     %v\n", result.RecomputationValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("======================================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.OutcomeValidationResult) {
	output := map[string]any{
		"valid":                result.IsValid(),
		"signature_valid":      result.SignatureValid,
		"auction_id_valid":     result.AuctionIDValid,
		"bid_inclusion_valid":  result.BidInclusionValid,
		"clearing_price_valid": result.ClearingPriceValid,
		"winner_valid":         result.WinnerValid,
		"recomputation_valid":  result.RecomputationValid,
		"details":              result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
