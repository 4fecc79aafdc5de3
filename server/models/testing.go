package models

import (
	"log"
	"os"

	"github.com/Daskott/safepoint/shared"
)

// InitializeTestDb points the package at a fresh, migrated & seeded sqlite db in a temp directory
func InitializeTestDb() {
	dbRootDir, err := os.MkdirTemp("", "safepoint-test-*")
	if err != nil {
		log.Panic(err)
	}

	err = AutoMigrate(shared.DatabaseConfig{Driver: "sqlite-plain"}, dbRootDir)
	if err != nil {
		log.Panic(err)
	}
}
