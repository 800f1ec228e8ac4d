// Command prints a fresh master key for credential encryption.
//
//	go run ./pkg/secrets/cmd >> .env
package main

import (
	"fmt"
	"os"

	"github.com/dmitrymomot/wamux/pkg/secrets"
)

func main() {
	key, err := secrets.GenerateEncodedKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate key:", err)
		os.Exit(1)
	}
	fmt.Printf("CREDENTIAL_ENCRYPTION_KEY=%s\n", key)
}
