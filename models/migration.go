package models

import (
	"log"

	"github.com/mmdatafocus/contacts_backend/config"
)

func MigrateTable() {
	if err := AutoMigrate(); err != nil {
		log.Fatal(err)
	}
}

func AutoMigrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&Person{},
		&Report{},
		&OutboxEvent{},
	)
}
