package main

import (
	// Load .env before flag parsing so OPENAI_API_KEY and friends are set.
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	Execute()
}
