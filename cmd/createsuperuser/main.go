package main

import (
	"context" // Context for the store call
	"flag"    // Command line flags

	"billing_system/internal/config"   // Custom import path (Config)
	"billing_system/internal/db"       // Custom import path (Database)
	"billing_system/internal/identity" // Identity service

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for creating an administrator
func main() {
	username := flag.String("username", "", "administrator username")
	password := flag.String("password", "", "administrator password")
	flag.Parse()

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	gdb, err := db.Open(cfg) // Connect to the configured database
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	user, err := identity.NewService(gdb).CreateSuperuser(context.Background(), *username, *password)
	if err != nil {
		logrus.Fatalf("failed to create superuser: %v", err)
	}
	logrus.WithField("user_id", user.ID).Info("Superuser created.")
}
