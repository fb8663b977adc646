package tips

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tipflow-backend/pkg/db/models"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	"github.com/angelmondragon/tipflow-backend/pkg/pagination"
)

func setupTipTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS tips (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  session_id TEXT,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  recipient_type TEXT NOT NULL,
  employee_id TEXT,
  recipient_name TEXT NOT NULL,
  stripe_payment_intent_id TEXT,
  fee_applied INTEGER NOT NULL DEFAULT 0,
  memo TEXT,
  emailed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)

	return db
}

func newTip(tenantID uuid.UUID, id string, createdAt time.Time) *models.Tip {
	return &models.Tip{
		ID:            id,
		TenantID:      tenantID,
		Amount:        1500,
		Currency:      "usd",
		Status:        enums.TipStatusPending,
		RecipientType: enums.RecipientTypeStore,
		RecipientName: "Blue Door Cafe",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestUpsertCreatesWhenAbsent(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	tip := newTip(tenantID, "tip_"+uuid.NewString(), time.Now().UTC())
	tip.Status = enums.TipStatusSucceeded

	saved, err := repo.Upsert(ctx, tip)
	require.NoError(t, err)
	require.NotNil(t, saved)

	loaded, err := repo.FindByID(ctx, tip.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, enums.TipStatusSucceeded, loaded.Status)
	assert.Equal(t, int64(1500), loaded.Amount)
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	original := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	first := newTip(tenantID, "tip_"+uuid.NewString(), original)
	require.NoError(t, repo.Create(ctx, first))

	intent := "pi_" + uuid.NewString()
	update := newTip(tenantID, first.ID, time.Now().UTC())
	update.Status = enums.TipStatusSucceeded
	update.StripePaymentIntentID = &intent
	update.FeeApplied = 75

	saved, err := repo.Upsert(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, original, saved.CreatedAt.UTC())
	assert.Equal(t, enums.TipStatusSucceeded, saved.Status)
	assert.Equal(t, int64(75), saved.FeeApplied)
	require.NotNil(t, saved.StripePaymentIntentID)
	assert.Equal(t, intent, *saved.StripePaymentIntentID)
}

func TestUpsertKeepsOptionalFieldsWhenUpdateOmitsThem(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	memo := "great service"
	session := "cs_" + uuid.NewString()
	first := newTip(tenantID, "tip_"+uuid.NewString(), time.Now().UTC())
	first.Memo = &memo
	first.SessionID = &session
	require.NoError(t, repo.Create(ctx, first))

	update := newTip(tenantID, first.ID, time.Now().UTC())
	update.Status = enums.TipStatusSucceeded

	saved, err := repo.Upsert(ctx, update)
	require.NoError(t, err)
	require.NotNil(t, saved.Memo)
	assert.Equal(t, memo, *saved.Memo)
	require.NotNil(t, saved.SessionID)
	assert.Equal(t, session, *saved.SessionID)
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	tip := newTip(tenantID, "tip_"+uuid.NewString(), time.Now().UTC())
	tip.Status = enums.TipStatusSucceeded
	tip.FeeApplied = 60

	firstPass, err := repo.Upsert(ctx, tip)
	require.NoError(t, err)
	secondPass, err := repo.Upsert(ctx, tip)
	require.NoError(t, err)

	assert.Equal(t, firstPass.CreatedAt.UTC(), secondPass.CreatedAt.UTC())
	assert.Equal(t, firstPass.Status, secondPass.Status)
	assert.Equal(t, firstPass.FeeApplied, secondPass.FeeApplied)

	var count int64
	require.NoError(t, db.Model(&models.Tip{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkEmailedStampsOnce(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tip := newTip(uuid.New(), "tip_"+uuid.NewString(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tip))

	won, err := repo.MarkEmailed(ctx, tip.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	again, err := repo.MarkEmailed(ctx, tip.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, again)

	loaded, err := repo.FindByID(ctx, tip.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.EmailedAt)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tip := newTip(tenantID, fmt.Sprintf("tip_page_%d", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, tip))
	}
	// Another tenant's tip must never leak into the page.
	require.NoError(t, repo.Create(ctx, newTip(uuid.New(), "tip_other", base.Add(time.Hour))))

	firstPage, cursor, err := repo.List(ctx, ListQuery{TenantID: tenantID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, "tip_page_4", firstPage[0].ID)
	assert.Equal(t, "tip_page_3", firstPage[1].ID)

	secondPage, cursor, err := repo.List(ctx, ListQuery{TenantID: tenantID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, secondPage, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, "tip_page_2", secondPage[0].ID)
	assert.Equal(t, "tip_page_1", secondPage[1].ID)

	lastPage, cursor, err := repo.List(ctx, ListQuery{TenantID: tenantID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, lastPage, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, "tip_page_0", lastPage[0].ID)
}

func TestListNormalizesOutOfRangeLimit(t *testing.T) {
	db := setupTipTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTip(tenantID, fmt.Sprintf("tip_lim_%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	rows, cursor, err := repo.List(ctx, ListQuery{TenantID: tenantID, Limit: -10})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Nil(t, cursor)
	assert.LessOrEqual(t, len(rows), pagination.DefaultLimit)
}
