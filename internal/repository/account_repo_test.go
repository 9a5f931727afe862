package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/testutil"
)

func TestAccountRepository_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()

	created := testutil.TestAccount(t, db, testutil.WithAccountEmail("a@example.com"))

	found, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 5000, found.MonthlyCredits)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepository_GetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	acc, err := repo.GetOrCreate(ctx, &model.Account{Email: "new@example.com", Plan: model.PlanFree, MonthlyCredits: 5000, LastMonthlyReset: &now})
	require.NoError(t, err)
	assert.Equal(t, 5000, acc.MonthlyCredits)

	// 已存在时不覆盖
	acc, err = repo.GetOrCreate(ctx, &model.Account{Email: "new@example.com", Plan: model.PlanPro, MonthlyCredits: 1})
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, acc.Plan)
	assert.Equal(t, 5000, acc.MonthlyCredits)
}

func TestAccountRepository_DeductMonthly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()
	acc := testutil.TestAccount(t, db, testutil.WithMonthlyCredits(20))

	ok, err := repo.DeductMonthly(ctx, acc.Email, 15)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeductMonthly(ctx, acc.Email, 15)
	require.NoError(t, err)
	assert.False(t, ok, "余额不足时不扣减")

	found, err := repo.GetByEmail(ctx, acc.Email)
	require.NoError(t, err)
	assert.Equal(t, 5, found.MonthlyCredits)
}

func TestAccountRepository_ResetMonthly_OncePerWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	old := now.AddDate(0, 0, -31)
	acc := testutil.TestAccount(t, db, testutil.WithMonthlyCredits(3), testutil.WithLastMonthlyReset(&old))

	cutoff := now.AddDate(0, 0, -30)
	ok, err := repo.ResetMonthly(ctx, acc.Email, 5000, now, cutoff)
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二次重置在同一窗口内不生效
	ok, err = repo.ResetMonthly(ctx, acc.Email, 5000, now, cutoff)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByEmail(ctx, acc.Email)
	require.NoError(t, err)
	assert.Equal(t, 5000, found.MonthlyCredits)
	require.NotNil(t, found.LastMonthlyReset)
	assert.WithinDuration(t, now, *found.LastMonthlyReset, time.Second)
}

func TestAccountRepository_ResetMonthly_NeverReset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()
	acc := testutil.TestAccount(t, db, testutil.WithMonthlyCredits(0), testutil.WithLastMonthlyReset(nil))

	now := time.Now().UTC()
	ok, err := repo.ResetMonthly(ctx, acc.Email, 25000, now, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountRepository_AdjustMonthly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()
	acc := testutil.TestAccount(t, db, testutil.WithMonthlyCredits(100))

	ok, err := repo.AdjustMonthly(ctx, acc.Email, 50)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdjustMonthly(ctx, acc.Email, -200)
	require.NoError(t, err)
	assert.False(t, ok)

	found, _ := repo.GetByEmail(ctx, acc.Email)
	assert.Equal(t, 150, found.MonthlyCredits)
}

func TestAccountRepository_SetPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	ctx := context.Background()
	acc := testutil.TestAccount(t, db)

	now := time.Now().UTC()
	end := now.AddDate(0, 0, 30)
	ok, err := repo.SetPlan(ctx, acc.Email, model.PlanPro, 25000, &now, &end, true, now)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByEmail(ctx, acc.Email)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, found.Plan)
	assert.Equal(t, 25000, found.MonthlyCredits)
	assert.True(t, found.IsManualAssignment)
	require.NotNil(t, found.SubscriptionEnd)

	ok, err = repo.SetPlan(ctx, "missing@example.com", model.PlanPro, 1, nil, nil, false, now)
	require.NoError(t, err)
	assert.False(t, ok)
}
