package db

import (
	"fmt"
	"os"
	"strings"

	"smartbin-server/entities"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection and migrates the gateway's tables.
// DB_URL takes precedence; otherwise the DSN is assembled from individual
// DB_* variables.
func Connect() (Database, error) {
	dsn, err := buildDSN()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Warn),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&entities.Dustbin{}, &entities.Reading{}, &entities.DeviceLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &GormDatabase{DB: db}, nil
}

func buildDSN() (string, error) {
	// Hosted database URLs come in as one string; make sure SSL stays on.
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		if !strings.Contains(dbURL, "sslmode=") {
			if strings.Contains(dbURL, "?") {
				dbURL += "&sslmode=require"
			} else {
				dbURL += "?sslmode=require"
			}
		}
		return dbURL, nil
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbPassword == "" || dbName == "" {
		return "", fmt.Errorf("missing required database configuration: DB_URL or (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	sslMode := "require"
	if dbHost == "localhost" || dbHost == "127.0.0.1" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		dbHost, dbUser, dbPassword, dbName, dbPort, sslMode), nil
}
