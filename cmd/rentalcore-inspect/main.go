// Command rentalcore-inspect opens the configured persistence backend and
// prints a JSON summary of the stored property state. Intended for local
// debugging of sqlite or postgres state files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"rentalcore/internal/core"
)

type propertySummary struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Region     string    `json:"region"`
	Ward       string    `json:"ward"`
	Price      string    `json:"price"`
	Images     int       `json:"images"`
	FollowedUp bool      `json:"followed_up"`
	Closed     bool      `json:"closed"`
	Confirmed  bool      `json:"confirmed"`
	CreatedAt  time.Time `json:"created_at"`
}

type stateSummary struct {
	Driver     string            `json:"driver"`
	Properties []propertySummary `json:"properties"`
	Counts     map[string]int    `json:"counts"`
}

func main() {
	envFile := flag.String("env", "", "optional .env file to load before reading configuration")
	listAll := flag.Bool("all", false, "include every property in the output, not just the first 20")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fatalf("load env file: %v", err)
		}
	} else {
		// best effort: a missing ./.env is fine
		_ = godotenv.Load()
	}

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		fatalf("open store: %v", err)
	}

	driver := os.Getenv("RENTALCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	props := store.ListProperties()
	followUps := store.FollowUps()
	closures := store.Closures()

	summary := stateSummary{
		Driver: driver,
		Counts: map[string]int{
			"properties":  len(props),
			"followed_up": len(followUps),
			"closed":      len(closures),
		},
	}
	for i, p := range props {
		if !*listAll && i >= 20 {
			break
		}
		_, followed := followUps[p.ID]
		_, closed := closures[p.ID]
		_, confirmed := store.GetConfirmation(p.ID)
		summary.Properties = append(summary.Properties, propertySummary{
			ID:         p.ID,
			Category:   p.Category,
			Status:     string(p.Status),
			Region:     p.Region,
			Ward:       p.Ward,
			Price:      p.Price,
			Images:     len(p.Images),
			FollowedUp: followed,
			Closed:     closed,
			Confirmed:  confirmed,
			CreatedAt:  p.CreatedAt,
		})
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fatalf("encode summary: %v", err)
	}
	fmt.Println(string(out))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
