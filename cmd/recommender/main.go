// Package main provides the entry point for the AI recommender service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recommender",
	Short: "AI trip itinerary recommender service",
	Long:  "Recommender turns structured trip requests into validated, audited AI-generated itineraries for internal LittleLifeTrip services.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
