package main

import (
	"fmt"
	"os"

	"github.com/makkenzo/keyauth-service/cmd/keyauthctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
