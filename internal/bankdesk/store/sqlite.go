package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/bankdesk/internal/model"
	sqliteopts "github.com/kart-io/bankdesk/pkg/options/sqlite"
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

// New opens the SQLite database, migrates the schema and returns the
// storage factory.
func New(opts *sqliteopts.Options) (Factory, error) {
	if opts == nil {
		opts = sqliteopts.NewOptions()
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.LogLevel(opts.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)

	ds := &datastore{db}
	if err := ds.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return ds, nil
}

// Queries returns the query history store.
func (ds *datastore) Queries() QueryStore {
	return newQueries(ds.db)
}

// DocumentUsage returns the document usage store.
func (ds *datastore) DocumentUsage() UsageStore {
	return newUsage(ds.db)
}

// AutoMigrate migrates the database schema.
func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(
		&model.Query{},
		&model.DocumentUsage{},
	)
}

// Close closes the underlying database connection.
func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
