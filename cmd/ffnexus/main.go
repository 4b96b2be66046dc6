package main

import (
	"ffnexus/cmd/handlers"
	"ffnexus/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
