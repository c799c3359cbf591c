package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingrelay/internal/clock"
	ledgerdomain "github.com/smallbiznis/billingrelay/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (ledgerdomain.Writer, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&ledgerdomain.SubscriptionPayment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	writer := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return writer, db
}

func successEntry() ledgerdomain.Entry {
	return ledgerdomain.Entry{
		OrgID:              "org-1",
		Provider:           "paystack",
		Reference:          "ref-1",
		ExternalInvoiceID:  "INV_1",
		EventType:          "charge.success",
		PlanCode:           "pro",
		ProviderStatus:     "success",
		Amount:             decimal.NewFromInt(500000),
		AmountInMinorUnits: true,
		Currency:           "ngn",
		OccurredAt:         time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestRecordNormalizesAndStores(t *testing.T) {
	writer, db := setupLedger(t)

	recorded, err := writer.Record(context.Background(), db, successEntry())
	require.NoError(t, err)
	assert.True(t, recorded)

	var row ledgerdomain.SubscriptionPayment
	require.NoError(t, db.Take(&row).Error)
	assert.Equal(t, "org-1", row.OrgID)
	assert.Equal(t, "NGN", row.Currency)
	assert.Equal(t, ledgerdomain.PaymentOutcomeSucceeded, row.Outcome)
	assert.True(t, decimal.NewFromInt(5000).Equal(row.Amount), "amount %s", row.Amount)
	require.NotNil(t, row.ExternalInvoiceID)
	assert.Equal(t, "INV_1", *row.ExternalInvoiceID)
}

func TestRecordSkipsNonTerminalStatus(t *testing.T) {
	writer, db := setupLedger(t)

	entry := successEntry()
	entry.ProviderStatus = "pending"
	recorded, err := writer.Record(context.Background(), db, entry)
	require.NoError(t, err)
	assert.False(t, recorded)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.SubscriptionPayment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordSwallowsDuplicates(t *testing.T) {
	writer, db := setupLedger(t)
	ctx := context.Background()

	_, err := writer.Record(ctx, db, successEntry())
	require.NoError(t, err)

	sameReference := successEntry()
	sameReference.ExternalInvoiceID = "INV_2"
	recorded, err := writer.Record(ctx, db, sameReference)
	require.NoError(t, err)
	assert.False(t, recorded)

	sameInvoice := successEntry()
	sameInvoice.Reference = "ref-2"
	recorded, err = writer.Record(ctx, db, sameInvoice)
	require.NoError(t, err)
	assert.False(t, recorded)

	otherProvider := successEntry()
	otherProvider.Provider = "stripe"
	recorded, err = writer.Record(ctx, db, otherProvider)
	require.NoError(t, err)
	assert.True(t, recorded)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.SubscriptionPayment{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRecordAllowsMissingInvoiceIDs(t *testing.T) {
	writer, db := setupLedger(t)
	ctx := context.Background()

	for _, ref := range []string{"ref-a", "ref-b"} {
		entry := successEntry()
		entry.Reference = ref
		entry.ExternalInvoiceID = ""
		recorded, err := writer.Record(ctx, db, entry)
		require.NoError(t, err)
		assert.True(t, recorded, ref)
	}
}

func TestRecordFailedOutcome(t *testing.T) {
	writer, db := setupLedger(t)

	entry := successEntry()
	entry.ProviderStatus = "failed"
	recorded, err := writer.Record(context.Background(), db, entry)
	require.NoError(t, err)
	require.True(t, recorded)

	var row ledgerdomain.SubscriptionPayment
	require.NoError(t, db.Take(&row).Error)
	assert.Equal(t, ledgerdomain.PaymentOutcomeFailed, row.Outcome)
}

func TestRecordSkipsInvalidEntry(t *testing.T) {
	writer, db := setupLedger(t)
	ctx := context.Background()

	noReference := successEntry()
	noReference.Reference = " "
	recorded, err := writer.Record(ctx, db, noReference)
	require.NoError(t, err)
	assert.False(t, recorded)

	noCurrency := successEntry()
	noCurrency.Currency = ""
	recorded, err = writer.Record(ctx, db, noCurrency)
	require.NoError(t, err)
	assert.False(t, recorded)

	var n int64
	require.NoError(t, db.Model(&ledgerdomain.SubscriptionPayment{}).Count(&n).Error)
	assert.Zero(t, n)
}
