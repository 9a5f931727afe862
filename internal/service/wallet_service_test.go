package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/credit_go_server/internal/ledger"
	"github.com/qs3c/credit_go_server/internal/model"
	"github.com/qs3c/credit_go_server/internal/testutil"
)

func TestWalletService_GetCredits_LazyCreate(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)
	email := testutil.UniqueEmail()

	snap, err := svc.GetCredits(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Weekly)
	assert.Equal(t, 0, snap.Purchased)
	assert.Equal(t, 10, snap.Total)
	assert.False(t, snap.IsPro)
	assert.True(t, snap.NextReset.Equal(env.clock.Now().AddDate(0, 0, 7)))
}

func TestWalletService_GetCredits_ProWeeklySeed(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)
	acc := testutil.TestAccount(t, env.db,
		testutil.WithPlan(model.PlanPro),
		testutil.WithSubscriptionEnd(env.clock.Now().AddDate(0, 0, 5)),
	)
	testutil.TestWallet(t, env.db, acc.Email, 0, 7, env.clock.Now().AddDate(0, 0, -7))

	snap, err := svc.GetCredits(context.Background(), acc.Email)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Weekly)
	assert.Equal(t, 7, snap.Purchased)
	assert.True(t, snap.IsPro)
}

func TestWalletService_Deduct_PoolOrdering(t *testing.T) {
	tests := []struct {
		name          string
		weekly        int
		purchased     int
		amount        int
		wantWeekly    int
		wantPurchased int
		wantErr       bool
	}{
		{"spills into purchased", 3, 10, 5, 0, 8, false},
		{"weekly only", 3, 10, 2, 1, 10, false},
		{"exact total", 4, 6, 10, 0, 0, false},
		{"insufficient leaves both pools", 2, 1, 10, 2, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupLedger(t)
			counter := &stubCounter{}
			svc := NewWalletService(env.core, counter)
			acc := testutil.TestAccount(t, env.db)
			testutil.TestWallet(t, env.db, acc.Email, tt.weekly, tt.purchased, env.clock.Now().Add(-time.Hour))

			snap, err := svc.Deduct(context.Background(), acc.Email, tt.amount, "landing page")
			if tt.wantErr {
				var insufficient *ledger.InsufficientCreditsError
				require.True(t, errors.As(err, &insufficient))
				assert.Equal(t, tt.weekly, insufficient.Weekly)
				assert.Equal(t, tt.purchased, insufficient.Purchased)
				assert.Equal(t, tt.amount, insufficient.Required)
				assert.Equal(t, 0, counter.count[acc.Email])
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantWeekly, snap.Weekly)
				assert.Equal(t, tt.wantPurchased, snap.Purchased)
				assert.Equal(t, 1, counter.count[acc.Email])
			}

			w := env.wallet(t, acc.Email)
			assert.Equal(t, tt.wantWeekly, w.WeeklyCredits)
			assert.Equal(t, tt.wantPurchased, w.PurchasedCredits)
		})
	}
}

func TestWalletService_Deduct_InvalidAmount(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)

	for _, amount := range []int{0, -3} {
		_, err := svc.Deduct(context.Background(), testutil.UniqueEmail(), amount, "")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
}

func TestWalletService_Deduct_ResetsWeekBeforeDeducting(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)
	acc := testutil.TestAccount(t, env.db)
	testutil.TestWallet(t, env.db, acc.Email, 0, 5, env.clock.Now().AddDate(0, 0, -8))

	snap, err := svc.Deduct(context.Background(), acc.Email, 12, "")
	require.NoError(t, err)
	// 重置后 10 + 5，先扣每周额度
	assert.Equal(t, 0, snap.Weekly)
	assert.Equal(t, 3, snap.Purchased)
	assert.True(t, snap.WeekStartDate.Equal(env.clock.Now()))
}

func TestWalletService_Deduct_RecordsUsage(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)
	acc := testutil.TestAccount(t, env.db)
	testutil.TestWallet(t, env.db, acc.Email, 10, 0, env.clock.Now())

	_, err := svc.Deduct(context.Background(), acc.Email, 4, "portfolio site")
	require.NoError(t, err)

	entries := env.recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.PoolWallet, entries[0].Pool)
	assert.Equal(t, "portfolio site", entries[0].Description)
	assert.Equal(t, 6, entries[0].BalanceAfter)

	assert.Eventually(t, func() bool {
		msgs := env.notifier.Messages()
		return len(msgs) == 1 && msgs[0].TotalCredits != nil && *msgs[0].TotalCredits == 6
	}, time.Second, 10*time.Millisecond)
}

func TestWalletService_Deduct_CounterFailureDoesNotFail(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, &stubCounter{err: errStoreDown})
	acc := testutil.TestAccount(t, env.db)
	testutil.TestWallet(t, env.db, acc.Email, 10, 0, env.clock.Now())

	snap, err := svc.Deduct(context.Background(), acc.Email, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 9, snap.Weekly)
}

func TestWalletService_Deduct_Concurrent(t *testing.T) {
	env := setupLedger(t)
	svc := NewWalletService(env.core, nil)
	acc := testutil.TestAccount(t, env.db)
	testutil.TestWallet(t, env.db, acc.Email, 10, 22, env.clock.Now())

	const workers = 10
	results := make([]error, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = svc.Deduct(context.Background(), acc.Email, 5, "")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ledger.ErrInsufficientCredits)
	}
	// floor(32/5)
	assert.Equal(t, 6, succeeded)
	w := env.wallet(t, acc.Email)
	assert.Equal(t, 0, w.WeeklyCredits)
	assert.Equal(t, 2, w.PurchasedCredits)
}
