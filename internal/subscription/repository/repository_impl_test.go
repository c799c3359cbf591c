package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/billingrelay/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Subscription{}))
	return db
}

func TestRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupDB(t))
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sub := &domain.Subscription{
		ID:                     1,
		OrgID:                  "org-1",
		Provider:               "paystack",
		Status:                 domain.StatusActive,
		PlanCode:               "pro",
		ExternalCustomerID:     "CUS_1",
		ExternalSubscriptionID: "SUB_1",
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, repo.Insert(ctx, sub))

	got, err := repo.FindByOrgID(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pro", got.PlanCode)

	got, err = repo.FindByExternalSubscriptionID(ctx, "paystack", "SUB_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "org-1", got.OrgID)

	got, err = repo.FindByExternalCustomerID(ctx, "paystack", "CUS_1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Lookups are scoped to the provider.
	got, err = repo.FindByExternalSubscriptionID(ctx, "stripe", "SUB_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindByExternalCustomerID(ctx, "paystack", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindByOrgID(ctx, "org-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewRepository(db)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sub := &domain.Subscription{ID: 2, OrgID: "org-2", Provider: "flutterwave", Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Insert(ctx, sub))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		sub.Status = domain.StatusPastDue
		return repo.WithTx(tx).Update(ctx, sub)
	}))

	got, err := repo.FindByOrgID(ctx, "org-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusPastDue, got.Status)
}
