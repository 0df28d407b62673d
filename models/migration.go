package models

import (
	"log"
	"os"

	"github.com/aurafoods/aura_backend/config"
)

func MigrateTable() {
	if os.Getenv("SKIP_MIGRATIONS") == "true" {
		return
	}

	db := config.GetDB()

	err := db.AutoMigrate(
		&Profile{},
		&Organization{}, &Dealer{}, &CommissionTransaction{},
		&Product{}, &Inventory{},
		&Subscription{}, &Order{},
		&GiftCard{},
		&VendingMachine{}, &VendingMachineInventory{},
		&InteractionLog{},
		&IdempotencyKey{}, &EventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
