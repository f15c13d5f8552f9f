package main

import (
	"github.com/joho/godotenv"

	"bess-trader/internal/cli"
)

func main() {
	// A local .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cli.Execute()
}
