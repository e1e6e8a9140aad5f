package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cloudx-io/secondprice/auctionapi"
	"github.com/cloudx-io/secondprice/core"
	"github.com/cloudx-io/secondprice/settlement"
)

// exampleRequest is the five-buyer auction used in the documentation.
func exampleRequest() auctionapi.AuctionRequest {
	return auctionapi.AuctionRequest{
		Type:         auctionapi.TypeAuctionRequest,
		AuctionID:    "example",
		Mode:         auctionapi.ModeBatch,
		ReservePrice: 100,
		BuyerBids:    json.RawMessage(`[[110,130],[],[125],[105,115,90],[132,135,140]]`),
	}
}

func main() {
	var (
		requestInput = flag.String("request", "", "Auction request JSON (file path or inline JSON)")
		example      = flag.Bool("example", false, "Run the built-in example auction")
		outputFormat = flag.String("format", "", "Output format: text or json (default from "+settlement.EnvOutputFormat+", else text)")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *requestInput == "" && !*example {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: one of --request or --example is required\n")
		os.Exit(1)
	}

	cfg, err := settlement.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(2)
	}
	if *outputFormat != "" {
		cfg.OutputFormat = *outputFormat
	}

	req := exampleRequest()
	if *requestInput != "" {
		data, err := readJSONInput(*requestInput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading request: %v\n", err)
			os.Exit(2)
		}
		req = auctionapi.AuctionRequest{}
		if err := json.Unmarshal(data, &req); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing request: %v\n", err)
			os.Exit(2)
		}
	}

	keyManager, err := settlement.NewKeyManagerFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing signing key: %v\n", err)
		os.Exit(2)
	}

	response := settlement.ProcessAuction(keyManager, req)

	if cfg.OutputFormat == "json" {
		outputJSON(response)
	} else {
		outputText(response, keyManager)
	}

	if !response.Success {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Second-Price Sealed-Bid Auction")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  auction --request <json> [options]")
	fmt.Println("  auction --example [options]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --request <json>                  Auction request (file path or inline JSON)")
	fmt.Println("  --example                         Run the built-in example auction")
	fmt.Println("  --format <text|json>              Output format")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Batch request:")
	fmt.Println("  {\"mode\":\"batch\",\"reserve_price\":100,\"buyer_bids\":[[110,130],[],[125]]}")
	fmt.Println()
	fmt.Println("Stream request:")
	fmt.Println("  {\"mode\":\"stream\",\"reserve_price\":100,\"buyer_count\":3,")
	fmt.Println("   \"bids\":[{\"buyer_id\":0,\"value\":110},{\"buyer_id\":2,\"value\":125}]}")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %-30s Proof signing key id (default: random UUID)\n", settlement.EnvKeyID)
	fmt.Printf("  %-30s Attach a signed outcome proof (default: true)\n", settlement.EnvSignProofs)
	fmt.Printf("  %-30s Default output format (default: text)\n", settlement.EnvOutputFormat)
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Auction settled")
	fmt.Println("  1 - Auction request rejected")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readJSONInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

func outputText(response auctionapi.AuctionResponse, keyManager *settlement.KeyManager) {
	fmt.Println("Second-Price Sealed-Bid Auction")
	fmt.Println("===============================")
	fmt.Println()
	fmt.Printf("  Auction ID:          %s\n", response.AuctionID)
	fmt.Printf("  Mode:                %s\n", response.Mode)

	if !response.Success {
		fmt.Printf("  Error:               %s\n", response.Message)
		return
	}

	fmt.Printf("  Bids Below Reserve:  %d\n", response.BelowReserveBids)
	if response.Mode == auctionapi.ModeStream {
		fmt.Printf("  Ignored Bids:        %d\n", response.IgnoredBids)
		fmt.Println()
		fmt.Println("Steps:")
		for i, step := range response.Steps {
			fmt.Printf("  %3d. buyer #%d bids %s -> %s\n", i+1, step.Bid.BuyerID, core.FormatPrice(step.Bid.Value), step.Result)
		}
	}

	fmt.Println()
	if buyer, price, ok := response.Result.Winner(); ok {
		fmt.Printf("The winner is buyer #%d with a price of %s\n", buyer, core.FormatPrice(price))
	} else {
		fmt.Println("No winner: no bid met the reserve price")
	}

	if response.ProofCOSEBase64 != "" {
		fmt.Println()
		fmt.Printf("Proof (key %s):\n  %s\n", keyManager.KeyID, response.ProofCOSEBase64)
		if pemStr, err := keyManager.PublicKeyPEM(); err == nil {
			fmt.Println()
			fmt.Print(pemStr)
		} else {
			log.Printf("ERROR: Failed to encode public key: %v", err)
		}
	}
}

func outputJSON(response auctionapi.AuctionResponse) {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
