// Command main runs the database seeder for Parley.
package main

import (
	"flag"
	"log"

	"parley/internal/config"
	"parley/internal/database"
	"parley/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	messages := flag.Int("messages", 40, "Max messages per conversation")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	password := flag.String("password", "password123", "Password for every seeded user")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, up to %d messages per conversation, clean=%v\n",
		*numUsers, *messages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.DefaultOptions()
	opts.Users = *numUsers
	opts.MessagesPerConv = *messages
	opts.Password = *password

	s := seed.NewSeeder(database.DB, opts)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
