package models

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/safepoint/server/logger"
	"github.com/Daskott/safepoint/shared"
	"github.com/Daskott/safepoint/utils"
	plainSqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "safepoint.db"

var logg = logger.NewLogger()
var db *gorm.DB

// SetLogger replaces the logger used by this package
func SetLogger(l *zap.SugaredLogger) {
	logg = l
}

// AutoMigrate opens the db described by 'dbConfig', migrates the schema and inserts seed data
func AutoMigrate(dbConfig shared.DatabaseConfig, dbRootDir string) error {
	err := openDB(dbConfig, dbRootDir)
	if err != nil {
		return err
	}

	return migrate()
}

// UseDB swaps the package db handle, mostly useful for tests
func UseDB(gormDB *gorm.DB) {
	db = gormDB
}

// DbFilePath returns the path to the sqlite db file for sqlite drivers, and "" otherwise
func DbFilePath(dbConfig shared.DatabaseConfig, dbRootDir string) (string, error) {
	if !isSqliteDriver(dbConfig.Driver) {
		return "", nil
	}

	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func openDB(dbConfig shared.DatabaseConfig, dbRootDir string) error {
	dialector, err := dbDialector(dbConfig, dbRootDir)
	if err != nil {
		return err
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	return nil
}

func dbDialector(dbConfig shared.DatabaseConfig, dbRootDir string) (gorm.Dialector, error) {
	switch dbConfig.Driver {
	case "mysql":
		return mysql.Open(dbConfig.DSN), nil
	case "postgres":
		return postgres.Open(dbConfig.DSN), nil
	}

	dbFilePath, err := DbFilePath(dbConfig, dbRootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	switch dbConfig.Driver {
	case "sqlite":
		if dbConfig.PassPhrase == "" {
			return nil, errors.New("a passPhrase is required for the encrypted sqlite driver")
		}

		return sqliteEncrypt.Open(fmt.Sprintf(
			"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
			dbFilePath,
			dbConfig.PassPhrase,
		)), nil
	case "sqlite-plain":
		return plainSqlite.Open(fmt.Sprintf("%v?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbFilePath)), nil
	}

	return nil, fmt.Errorf("unsupported database driver '%v'", dbConfig.Driver)
}

func isSqliteDriver(driver string) bool {
	return driver == "sqlite" || driver == "sqlite-plain"
}

func migrate() error {
	err := db.AutoMigrate(
		&Role{}, &JobStatus{}, &Job{},
		&User{}, &Contact{}, &IncidentReport{},
		&EmergencyAlert{}, &AlertDelivery{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %v", err)
	}

	return populateDBWithSeedData()
}

func populateDBWithSeedData() error {
	if err := db.First(&JobStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'JobStatus'")
		err = db.Create(&[]JobStatus{{Name: ENQUEUED_JOB}, {Name: IN_PROGRESS_JOB}, {Name: SUCCESSFUL_JOB}, {Name: DEAD_JOB}}).Error
		if err != nil {
			return err
		}
	}

	if err := db.First(&Role{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'Role'")
		err = db.Create(&[]Role{{Name: ADMIN_USER_ROLE}, {Name: BASIC_USER_ROLE}}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
