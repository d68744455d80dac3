package common

import (
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/store"
)

// StorageResult bundles the database handle with the store built on it.
// Callers own the handle and must Close it when done.
type StorageResult struct {
	DB    *sqlx.DB
	Store *store.Store
}

// CreateStorage connects to PostgreSQL and builds the content store.
func CreateStorage(deps CommandDeps) (*StorageResult, error) {
	dbCfg := deps.Config.Database
	db, err := store.NewPostgresConnection(store.Config{
		Host:     dbCfg.Host,
		Port:     strconv.Itoa(dbCfg.Port),
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DBName:   dbCfg.DBName,
		SSLMode:  dbCfg.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := store.New(db, deps.Config.StoreTables(), dates.NewSystem(), deps.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return &StorageResult{DB: db, Store: s}, nil
}
