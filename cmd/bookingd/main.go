package main

import (
	"os"

	"github.com/customk9/booking-gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
