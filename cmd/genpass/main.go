package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/australsec/opswatch/pkg/auth"
)

// Generates the password_hash and salt columns for an identity row.
// With -password the given credential is hashed; otherwise a random
// one is generated and printed alongside.
func main() {
	password := flag.String("password", "", "Password to hash; random when empty")
	length := flag.Int("length", 16, "Random password length in bytes (hex encoded, so output is 2x this)")
	flag.Parse()

	pw := *password
	if pw == "" {
		var err error
		pw, err = auth.RandomHex(*length)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating password: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Password: %s\n", pw)
	}

	hash, salt := auth.GenerateHashAndSalt(pw)
	fmt.Printf("Salt:     %s\n", salt)
	fmt.Printf("Hash:     %s\n", hash)
}
