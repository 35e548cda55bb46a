package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Ayejay3194/business-spine/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/keygen/main.go <api-key>")
		fmt.Println("       go run cmd/keygen/main.go secret")
		fmt.Println("Hashes an API key for config.yaml, or generates a confirmation-token secret.")
		os.Exit(1)
	}

	if os.Args[1] == "secret" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "generating secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("SPINE_CONFIRM__SECRET=%s\n", hex.EncodeToString(buf))
		return
	}

	apiKey := os.Args[1]
	keyHash := auth.HashAPIKey(apiKey)

	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("SHA-256 Hash: %s\n", keyHash)
	fmt.Println("\nAdd this to your config.yaml under a tenant:")
	fmt.Printf("  api_keys:\n")
	fmt.Printf("    - key_hash: \"%s\"\n", keyHash)
	fmt.Printf("      description: \"Generated key\"\n")
	fmt.Printf("      user_id: \"user-1\"\n")
	fmt.Printf("      role: \"staff\"\n")
}
