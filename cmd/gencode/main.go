// Command gencode prints a referral code without touching the database.
// Useful for seeding fixtures and handing out vanity-free codes manually.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/esimwe/esimnew/internal/referralcode"
)

const defaultLength = 8

func main() {
	length := defaultLength

	if len(os.Args) > 1 {
		parsed, err := strconv.Atoi(os.Args[1])
		if err != nil || parsed < 1 {
			fmt.Printf("usage: gencode [length], got %q\n", os.Args[1])
			os.Exit(1)
		}
		length = parsed
	}

	fmt.Println(referralcode.Generate(length))
}
