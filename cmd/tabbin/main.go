package main

import (
	"log"

	"github.com/TarouTanakaYokohama/tabbin/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ tabbin failed to start: %v", err)
	}
}
