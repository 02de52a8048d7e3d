package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// The schema must migrate and accept rows on the sqlite test dialector, not
// just on postgres. IDs are assigned in Go, never by a database default.
func TestAutoMigrateAndInsertOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:models_migration?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{},
		&TrainerBanking{},
		&PayoutsSummary{},
		&PayoutsHistory{},
		&ProcessedOrderLine{},
	))

	user := User{
		ID:       uuid.New(),
		FullName: "Ops Admin",
		Email:    "ops@example.com",
		Password: "hashed",
		Role:     "admin",
	}
	require.NoError(t, db.Create(&user).Error)

	var stored User
	require.NoError(t, db.First(&stored, "email = ?", "ops@example.com").Error)
	require.Equal(t, user.ID, stored.ID)
}
