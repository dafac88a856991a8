package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

func newWalletService(t *testing.T) (*db.Client, Service) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	return client, svc
}

func runLedger(t *testing.T, client *db.Client, svc Service, fn func(l Ledger) error) error {
	t.Helper()
	return client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return fn(svc.Ledger(tx, Reference{Type: enums.WalletReferenceTransaction, ID: uuid.New()}))
	})
}

func TestCreditCreatesWalletLazily(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()

	err := runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.Credit(context.Background(), owner, 900, true)
		return err
	})
	require.NoError(t, err)

	err = runLedger(t, client, svc, func(l Ledger) error {
		w, err := l.Credit(context.Background(), owner, 100, false)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(100), w.BalanceCents)
		assert.Equal(t, int64(900), w.EscrowHeldCents)
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Wallet{}).Where("owner_id = ?", owner).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	entries, err := svc.ListEntries(context.Background(), owner, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	client, svc := newWalletService(t)

	for _, amount := range []int64{0, -5} {
		err := runLedger(t, client, svc, func(l Ledger) error {
			_, err := l.Credit(context.Background(), uuid.New(), amount, false)
			return err
		})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "amount %d: %v", amount, err)
	}
}

func TestReleaseFromPendingToBalance(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()
	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.Credit(context.Background(), owner, 900, true)
		return err
	}))

	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		w, err := l.ReleaseFromPendingToBalance(context.Background(), owner, 900)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(900), w.BalanceCents)
		assert.Equal(t, int64(0), w.EscrowHeldCents)
		return nil
	}))

	err := runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.ReleaseFromPendingToBalance(context.Background(), owner, 1)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientPending), "got %v", err)
}

func TestDebitBalanceInsufficientFunds(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()

	err := runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.DebitBalance(context.Background(), owner, 10)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds), "missing wallet: %v", err)

	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.Credit(context.Background(), owner, 50, false)
		return err
	}))
	err = runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.DebitBalance(context.Background(), owner, 51)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds), "got %v", err)

	w, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(50), w.BalanceCents)
}

func TestPayoutEarmarkRoundTrip(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()
	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.Credit(context.Background(), owner, 500, false)
		return err
	}))

	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		w, err := l.MoveBalanceToPending(context.Background(), owner, 200)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(300), w.BalanceCents)
		assert.Equal(t, int64(200), w.PayoutHeldCents)
		assert.Equal(t, int64(200), w.PendingCents())
		return nil
	}))

	err := runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.MoveBalanceToPending(context.Background(), owner, 301)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds), "got %v", err)

	err = runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.MovePendingToBalance(context.Background(), owner, 201)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientPending), "got %v", err)

	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		w, err := l.MovePendingToBalance(context.Background(), owner, 200)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(500), w.BalanceCents)
		assert.Equal(t, int64(0), w.PayoutHeldCents)
		return nil
	}))
}

func TestFailedUnitOfWorkLeavesNoJournal(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()

	err := runLedger(t, client, svc, func(l Ledger) error {
		if _, err := l.Credit(context.Background(), owner, 100, false); err != nil {
			return err
		}
		_, err := l.DebitBalance(context.Background(), owner, 150)
		return err
	})
	require.Error(t, err)

	w, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.BalanceCents)

	entries, err := svc.ListEntries(context.Background(), owner, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalCarriesDeltasAndReference(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()
	ref := Reference{Type: enums.WalletReferencePayout, ID: uuid.New()}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		l := svc.Ledger(tx, ref)
		if _, err := l.Credit(context.Background(), owner, 300, false); err != nil {
			return err
		}
		_, err := l.MoveBalanceToPending(context.Background(), owner, 120)
		return err
	})
	require.NoError(t, err)

	entries, err := svc.ListEntries(context.Background(), owner, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var earmark models.WalletEntry
	for _, e := range entries {
		if e.Type == enums.WalletEntryPayoutEarmark {
			earmark = e
		}
	}
	assert.Equal(t, int64(120), earmark.AmountCents)
	assert.Equal(t, int64(-120), earmark.BalanceDeltaCents)
	assert.Equal(t, int64(120), earmark.PayoutDeltaCents)
	assert.Equal(t, enums.WalletReferencePayout, earmark.ReferenceType)
	require.NotNil(t, earmark.ReferenceID)
	assert.Equal(t, ref.ID, *earmark.ReferenceID)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	client, svc := newWalletService(t)
	owner := uuid.New()
	require.NoError(t, runLedger(t, client, svc, func(l Ledger) error {
		_, err := l.Credit(context.Background(), owner, 1000, false)
		return err
	}))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
				_, err := svc.Ledger(tx, Reference{}).DebitBalance(context.Background(), owner, 100)
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	w, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.BalanceCents)
}

func TestGetMissingWalletReadsEmpty(t *testing.T) {
	_, svc := newWalletService(t)
	owner := uuid.New()

	w, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, w.OwnerID)
	assert.Zero(t, w.BalanceCents)
	assert.Zero(t, w.PendingCents())

	_, err = svc.Get(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
