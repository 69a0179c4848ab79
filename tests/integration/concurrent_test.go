package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/adapter/repository/postgres"
	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/idgen"
	"github.com/iho/goaccount/internal/usecase"
	"github.com/iho/goaccount/internal/usecase/mocks"
	"github.com/iho/goaccount/tests/testutil"
)

func TestConcurrentStatusUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	pool := testDB.Pool
	accountRepo := postgres.NewAccountRepository(pool)
	publisher := mocks.NewRecordingPublisher()

	accountUC, err := usecase.NewAccountUseCase(usecase.AccountUseCaseConfig{
		TxManager:   postgres.NewTxManager(pool),
		AccountRepo: accountRepo,
		Publisher:   publisher,
		IDGen:       idgen.NewULIDGenerator(),
		EventIDGen:  idgen.NewUUIDGenerator(),
		Retrier:     postgres.NewRetrier(zerolog.Nop()),
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to build use case: %v", err)
	}

	t.Run("only one of many racing writers wins", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		account := testDB.CreateTestAccount(ctx, "CUST-RACE", domain.AccountStatusActive)

		targets := []domain.AccountStatus{
			domain.AccountStatusSuspended,
			domain.AccountStatusInactive,
			domain.AccountStatusClosed,
		}
		numWriters := 30

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			successes atomic.Int32
			conflicts atomic.Int32
			rejected  atomic.Int32
		)

		wg.Add(numWriters)
		for i := 0; i < numWriters; i++ {
			target := targets[i%len(targets)]
			go func() {
				defer wg.Done()
				<-start

				_, err := accountUC.UpdateStatus(ctx, usecase.UpdateStatusInput{
					AccountID: account.AccountID,
					Status:    target,
				})
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, domain.ErrConcurrencyConflict):
					conflicts.Add(1)
				case errors.Is(err, domain.ErrInvalidStatusTransition):
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		stored, err := accountRepo.GetByID(ctx, account.AccountID)
		if err != nil {
			t.Fatalf("failed to reload account: %v", err)
		}

		// Every success bumps the version by one and emits one event.
		if got := int64(successes.Load()); stored.Version != account.Version+got {
			t.Fatalf("version %d does not match %d successful writes", stored.Version, got)
		}
		if got := len(publisher.Events()); got != int(successes.Load()) {
			t.Fatalf("expected %d events, got %d", successes.Load(), got)
		}
		if successes.Load() == 0 {
			t.Fatalf("expected at least one successful write")
		}
		if total := successes.Load() + conflicts.Load() + rejected.Load(); total != int32(numWriters) {
			t.Fatalf("lost outcomes: %d of %d", total, numWriters)
		}
	})

	t.Run("racing creates with the same email", func(t *testing.T) {
		testDB.TruncateAll(ctx)
		email := testutil.UniqueEmail()
		numWriters := 10

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			successes atomic.Int32
			duplicate atomic.Int32
		)

		wg.Add(numWriters)
		for i := 0; i < numWriters; i++ {
			go func() {
				defer wg.Done()
				<-start

				_, err := accountUC.CreateAccount(ctx, usecase.CreateAccountInput{
					CustomerID:   "CUST-DUP",
					AccountType:  domain.AccountTypeCurrent,
					Currency:     "USD",
					CustomerName: "Dup",
					Email:        email,
				})
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, domain.ErrAccountAlreadyExists):
					duplicate.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		if successes.Load() != 1 {
			t.Fatalf("expected exactly one account, got %d", successes.Load())
		}
		if duplicate.Load() != int32(numWriters-1) {
			t.Fatalf("expected %d duplicates, got %d", numWriters-1, duplicate.Load())
		}
	})
}
