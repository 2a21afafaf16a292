package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/store"
)

// Connect opens the database, creating it first when missing, and runs migrations.
func Connect(dsn, logLevel string, log logrus.FieldLogger) (*gorm.DB, error) {
	if err := ensureDatabase(dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.WithError(err).Warn("failed to ensure uuid-ossp extension")
	}

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return conn, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.ReplyContext{},
		&models.OrderMessage{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}

const defaultStock = 100

// DefaultCatalog is the starter catalog shipped with the storefront.
func DefaultCatalog() []models.Product {
	item := func(name string, price int64, category, image, description string) models.Product {
		return models.Product{
			Name:        name,
			Price:       decimal.NewFromInt(price),
			Category:    category,
			Image:       image,
			Description: description,
			Stock:       defaultStock,
		}
	}

	return []models.Product{
		item("Смартфон X1", 25990, "electronics", "https://via.placeholder.com/300/92c952", "Современный смартфон с мощным процессором и отличной камерой."),
		item("Наушники Pro", 5990, "audio", "https://via.placeholder.com/300/771796", "Беспроводные наушники с шумоподавлением."),
		item("Смарт-часы", 12990, "electronics", "https://via.placeholder.com/300/24f355", "Умные часы с функцией отслеживания здоровья."),
		item("Планшет Light", 18990, "electronics", "https://via.placeholder.com/300/d32776", "Легкий и компактный планшет для работы и развлечений."),
		item("Портативная колонка", 3490, "audio", "https://via.placeholder.com/300/f66b97", "Компактная колонка с отличным звуком."),
		item("Умная лампа", 2790, "smart_home", "https://via.placeholder.com/300/56a8c2", "Светильник с регулируемой яркостью."),
	}
}

// SeedCatalog fills an empty catalog with DefaultCatalog. It reports how many products it added.
func SeedCatalog(ctx context.Context, catalog store.Catalog) (int, error) {
	existing, err := catalog.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	products := DefaultCatalog()
	for i := range products {
		if err := catalog.CreateProduct(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("seed product %q: %w", products[i].Name, err)
		}
	}
	return len(products), nil
}
