package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/aurafoods/aura_backend/utils"
)

// seed-admin bootstraps the first admin account. Idempotent: an existing
// profile with the email is promoted instead of duplicated.
func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	name := flag.String("name", "Administrator", "admin display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (min 8 chars)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || len(*password) < 8 {
		log.Fatal("email and a password of at least 8 characters are required")
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	models.MigrateTable()

	ctx := context.Background()
	normalized := strings.ToLower(strings.TrimSpace(*email))

	var existing models.Profile
	err := db.WithContext(ctx).Where("email = ?", normalized).First(&existing).Error
	if err == nil {
		if err := db.WithContext(ctx).Model(&existing).
			UpdateColumn("role", models.ProfileRoleAdmin).Error; err != nil {
			log.Fatal(err)
		}
		log.Printf("promoted existing profile %s to admin", normalized)
		return
	}

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatal(err)
	}
	profile := models.Profile{
		Email:    normalized,
		Name:     strings.TrimSpace(*name),
		Password: string(hashed),
		Role:     models.ProfileRoleAdmin,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
		log.Fatal(err)
	}
	log.Printf("created admin profile %s (id=%d)", normalized, profile.ID)
}
