package main

import (
	"log"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Printf("[CRITICAL] %s", err)
		os.Exit(1)
	}
}
