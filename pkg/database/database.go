package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/causify-ai/ascope/pkg/config"
	"github.com/causify-ai/ascope/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// Init initializes the SQLite database connection
func Init() error {
	var err error

	path := config.AppConfig.Database.Path
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=30000"

	// Open SQLite database (creates if doesn't exist)
	DB, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	// Configure connection pool
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(10)
	DB.SetConnMaxLifetime(time.Hour)

	// Test the connection
	if err = DB.Ping(); err != nil {
		return err
	}

	logger.Infof("Database connected at %s with WAL mode", path)

	// Run SQL scripts
	if err = RunSQLScripts(); err != nil {
		return err
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// RunSQLScripts reads and executes SQL scripts from the migrations directory
func RunSQLScripts() error {
	sqlDir := "migrations"
	files, err := os.ReadDir(sqlDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, file := range files {
		if filepath.Ext(file.Name()) == ".sql" {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sqlPath := filepath.Join(sqlDir, name)
		sqlContent, err := os.ReadFile(sqlPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", sqlPath, err)
		}

		if _, err := DB.Exec(string(sqlContent)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", sqlPath, err)
		}
		logger.Infof("Executed migration %s", name)
	}

	return nil
}
