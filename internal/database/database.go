// Package database owns the catalogue's SQLite connection and schema.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openshelf/shelfsync/internal/entities"
)

// defaultShelves are the exclusive read-status shelves every catalogue
// starts with. They mirror the remote service's built-in shelves so shelf
// names round-trip without translation.
var defaultShelves = []entities.Shelf{
	{Name: string(entities.ReadStatusToRead), DisplayName: "To Read", IsExclusive: true},
	{Name: string(entities.ReadStatusReading), DisplayName: "Currently Reading", IsExclusive: true},
	{Name: string(entities.ReadStatusRead), DisplayName: "Read", IsExclusive: true},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Book{},
		&entities.Author{},
		&entities.Shelf{},
		&entities.Setting{},
		&entities.SyncCheckpoint{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedShelves(); err != nil {
		return nil, fmt.Errorf("failed to seed shelves: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedShelves() error {
	for _, shelf := range defaultShelves {
		var existing entities.Shelf
		result := d.DB.Where("name = ?", shelf.Name).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&shelf).Error; err != nil {
				return fmt.Errorf("failed to create shelf %s: %w", shelf.Name, err)
			}
		}
	}
	return nil
}
