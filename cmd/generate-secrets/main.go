package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/smarttransit/seat-booking-engine/internal/utils"
)

// Prints fresh JWT_SECRET and BOARDING_TOKEN_SECRET assignments. With -env the
// output is only the assignments, ready to append to a .env file.
func main() {
	var (
		size    int
		envOnly bool
	)
	flag.IntVar(&size, "bytes", utils.DefaultSecretBytes, "random bytes per secret")
	flag.BoolVar(&envOnly, "env", false, "print only the .env assignments")
	flag.Parse()

	secrets, err := utils.NewTokenSecrets(size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate-secrets: %v\n", err)
		os.Exit(1)
	}

	if !envOnly {
		fmt.Fprintln(os.Stderr, "# Seat booking engine token secrets. Keep them out of version control.")
	}
	if err := secrets.WriteEnv(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "generate-secrets: %v\n", err)
		os.Exit(1)
	}
}
