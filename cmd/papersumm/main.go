package main

import (
	"github.com/joho/godotenv"

	"github.com/dgallion1/papersumm/internal/cli"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cli.Execute()
}
