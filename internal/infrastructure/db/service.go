package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill"
	wmsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	badgerdb "github.com/arkade-os/bridged/internal/infrastructure/db/badger"
	pgdb "github.com/arkade-os/bridged/internal/infrastructure/db/postgres"
	sqlitedb "github.com/arkade-os/bridged/internal/infrastructure/db/sqlite"
	watermilldb "github.com/arkade-os/bridged/internal/infrastructure/db/watermill"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed sqlite/migration/*
var migrations embed.FS

//go:embed postgres/migration/*
var pgMigration embed.FS

var transferStoreTypes = map[string]func(...interface{}) (domain.TransferRepository, error){
	"badger":   badgerdb.NewTransferRepository,
	"sqlite":   sqlitedb.NewTransferRepository,
	"postgres": pgdb.NewTransferRepository,
}

const (
	sqliteDbFile = "sqlite.db"
)

type ServiceConfig struct {
	EventStoreType string
	DataStoreType  string

	EventStoreConfig []interface{}
	DataStoreConfig  []interface{}
}

type service struct {
	eventStore    domain.EventRepository
	transferStore domain.TransferRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	transferStoreFactory, ok := transferStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	var eventStore domain.EventRepository
	var transferStore domain.TransferRepository
	var err error

	logger := watermill.NopLogger{}
	switch config.EventStoreType {
	case "inmemory":
		publisher := gochannel.NewGoChannel(gochannel.Config{}, logger)
		eventStore = watermilldb.NewWatermillEventRepository(publisher, nil)
	case "postgres":
		db, err := openPostgres(config.EventStoreConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %s", err)
		}

		publisher, err := wmsql.NewPublisher(
			db,
			wmsql.PublisherConfig{
				SchemaAdapter:        wmsql.DefaultPostgreSQLSchema{},
				AutoInitializeSchema: true,
			},
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %s", err)
		}
		eventStore = watermilldb.NewWatermillEventRepository(publisher, db)
	default:
		return nil, fmt.Errorf("unknown event store db type")
	}

	switch config.DataStoreType {
	case "badger":
		transferStore, err = transferStoreFactory(config.DataStoreConfig...)
		if err != nil {
			return nil, fmt.Errorf("failed to open transfer store: %s", err)
		}

	case "postgres":
		db, err := openPostgres(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}

		pgDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres migration driver: %s", err)
		}

		source, err := iofs.New(pgMigration, "postgres/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed postgres migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "postgres", pgDriver)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run postgres migrations: %s", err)
		}

		transferStore, err = transferStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open transfer store: %s", err)
		}

	case "sqlite":
		if len(config.DataStoreConfig) != 1 {
			return nil, fmt.Errorf("invalid data store config")
		}

		baseDir, ok := config.DataStoreConfig[0].(string)
		if !ok {
			return nil, fmt.Errorf("invalid base directory")
		}

		dbFile := filepath.Join(baseDir, sqliteDbFile)
		db, err := sqlitedb.OpenDb(dbFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %s", err)
		}

		driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to init driver: %s", err)
		}

		source, err := iofs.New(migrations, "sqlite/migration")
		if err != nil {
			return nil, fmt.Errorf("failed to embed migrations: %s", err)
		}

		m, err := migrate.NewWithInstance("iofs", source, "bridgeddb", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration instance: %s", err)
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %s", err)
		}

		transferStore, err = transferStoreFactory(db)
		if err != nil {
			return nil, fmt.Errorf("failed to open transfer store: %s", err)
		}
	}

	log.Debugf(
		"opened repo manager with %s event store and %s data store",
		config.EventStoreType, config.DataStoreType,
	)
	return &service{
		eventStore:    eventStore,
		transferStore: transferStore,
	}, nil
}

func (s *service) Events() domain.EventRepository {
	return s.eventStore
}

func (s *service) Transfers() domain.TransferRepository {
	return s.transferStore
}

func (s *service) Close() {
	s.eventStore.Close()
	s.transferStore.Close()
}

func openPostgres(config []interface{}) (*sql.DB, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid data store config for postgres")
	}

	dsn, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid DSN for postgres")
	}

	autoCreate, ok := config[1].(bool)
	if !ok {
		return nil, fmt.Errorf("invalid autocreate flag for postgres")
	}

	db, err := pgdb.OpenDb(dsn, autoCreate)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %s", err)
	}
	return db, nil
}
