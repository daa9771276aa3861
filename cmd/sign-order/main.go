package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/outcomex/clob/pkg/crypto"
)

// sign-order is a manual-testing helper: it generates (or loads) a signer
// identity, builds a limit-order request payload, signs its canonical JSON
// encoding, verifies the signature recovers the same address, and prints a
// curl command ready to submit against a running exchanged instance.
func main() {
	var (
		privateKeyHex = flag.String("key", "", "hex-encoded private key (generates a new one if empty)")
		marketId      = flag.Uint64("market", 0, "market id")
		outcome       = flag.String("outcome", "yes", "yes or no")
		side          = flag.String("side", "buy", "buy or sell")
		price         = flag.Int64("price", 500, "price in basis points, 1-999")
		size          = flag.String("size", "100", "order size as a decimal string")
	)
	flag.Parse()

	var (
		signer *crypto.Signer
		err    error
	)
	if *privateKeyHex != "" {
		signer, err = crypto.FromPrivateKeyHex(*privateKeyHex)
	} else {
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	if *privateKeyHex == "" {
		fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())
	}

	order := map[string]interface{}{
		"caller":   signer.Address().Hex(),
		"marketId": *marketId,
		"outcome":  *outcome,
		"side":     *side,
		"price":    *price,
		"size":     *size,
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		fmt.Printf("error marshaling order: %v\n", err)
		os.Exit(1)
	}

	signature, err := signer.SignMessage(orderJSON)
	if err != nil {
		fmt.Printf("error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signature: 0x%x\n\n", signature)

	hash := ethcrypto.Keccak256Hash(orderJSON)
	recovered, err := crypto.RecoverAddress(hash.Bytes(), signature)
	if err != nil {
		fmt.Printf("error verifying: %v\n", err)
		os.Exit(1)
	}
	if recovered != signer.Address() {
		fmt.Println("signature does NOT match signer address")
		os.Exit(1)
	}
	fmt.Println("signature verified")

	fmt.Println("\nOrder payload:")
	fmt.Println(string(orderJSON))

	fmt.Println("\nSubmit with:")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/orders/limit -H 'Content-Type: application/json' -d '%s'\n", orderJSON)
}
