package main

import (
	"log"

	"github.com/thiagokokada/gitlane/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("gitlane: %v", err)
	}
}
