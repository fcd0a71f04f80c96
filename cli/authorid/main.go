package main

import (
	"os"

	authoridcmder "github.com/authorid/authorid/cmd/authorid"
)

func main() {
	cmd := authoridcmder.NewAuthoridCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
