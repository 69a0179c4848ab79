package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/metrics"
)

// AccountUseCase handles the account lifecycle: creation, lookups and status
// transitions, each committed change producing exactly one AccountEvent.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	publisher   EventPublisher
	cache       AccountCache
	cacheTTL    time.Duration
	idGen       IDGenerator
	eventIDGen  IDGenerator
	retrier     Retrier
	delivery    DeliveryMode
	encode      func(*domain.AccountEvent) ([]byte, error)
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// AccountUseCaseConfig holds the dependencies of AccountUseCase.
type AccountUseCaseConfig struct {
	TxManager   TransactionManager
	AccountRepo AccountRepository
	OutboxRepo  OutboxRepository // required for DeliveryOutbox
	Publisher   EventPublisher   // required for DeliveryDirect
	Cache       AccountCache     // optional
	CacheTTL    time.Duration
	IDGen       IDGenerator // account ids
	EventIDGen  IDGenerator // event ids
	Retrier     Retrier     // optional
	Delivery    DeliveryMode
	Encoder     func(*domain.AccountEvent) ([]byte, error)
	Clock       func() time.Time
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(cfg AccountUseCaseConfig) (*AccountUseCase, error) {
	if cfg.Delivery == "" {
		cfg.Delivery = DeliveryDirect
	}
	if !cfg.Delivery.Valid() {
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Delivery)
	}
	if cfg.TxManager == nil || cfg.AccountRepo == nil || cfg.IDGen == nil || cfg.EventIDGen == nil {
		return nil, errors.New("account use case requires a transaction manager, repository and id generators")
	}
	if cfg.Delivery == DeliveryDirect && cfg.Publisher == nil {
		return nil, errors.New("direct delivery requires an event publisher")
	}
	if cfg.Delivery == DeliveryOutbox && cfg.OutboxRepo == nil {
		return nil, errors.New("outbox delivery requires an outbox repository")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultAccountCacheTTL
	}
	if cfg.Encoder == nil {
		cfg.Encoder = (*domain.AccountEvent).Encode
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &AccountUseCase{
		txManager:   cfg.TxManager,
		accountRepo: cfg.AccountRepo,
		outboxRepo:  cfg.OutboxRepo,
		publisher:   cfg.Publisher,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		idGen:       cfg.IDGen,
		eventIDGen:  cfg.EventIDGen,
		retrier:     cfg.Retrier,
		delivery:    cfg.Delivery,
		encode:      cfg.Encoder,
		now:         cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "account_usecase").Logger(),
	}, nil
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	CustomerID   string
	AccountType  domain.AccountType
	Currency     string
	CustomerName string
	Email        string
	PhoneNumber  string
}

// UpdateStatusInput represents a requested status transition.
type UpdateStatusInput struct {
	AccountID string
	Status    domain.AccountStatus
	// Reason is accepted for audit purposes but neither stored nor emitted.
	Reason string
}

// CreateAccount creates a new ACTIVE account and emits ACCOUNT_CREATED.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	uc.logger.Info().Str("customer_id", input.CustomerID).Msg("creating account")

	exists, err := uc.accountRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		uc.countOperation("create", "already_exists")
		return nil, fmt.Errorf("%w: account with email %s already exists", domain.ErrAccountAlreadyExists, input.Email)
	}

	now := uc.now()
	account := &domain.Account{
		AccountID:    domain.AccountIDPrefix + uc.idGen.Generate(),
		CustomerID:   input.CustomerID,
		AccountType:  input.AccountType,
		Currency:     input.Currency,
		Status:       domain.AccountStatusActive,
		CustomerName: input.CustomerName,
		Email:        input.Email,
		PhoneNumber:  input.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, err := uc.persist(ctx, account, 0, domain.EventTypeAccountCreated)
	if err != nil {
		uc.countOperation("create", resultLabel(err))
		return nil, err
	}

	uc.countOperation("create", "success")
	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	uc.logger.Info().Str("account_id", saved.AccountID).Msg("account created")

	return saved, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if cached := uc.cachedAccount(ctx, accountID); cached != nil {
		return cached, nil
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, account, uc.cacheTTL); err != nil {
			uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("failed to cache account")
		}
	}

	return account, nil
}

// GetAccountsByCustomer lists the accounts owned by a customer. Unknown
// customers yield an empty slice.
func (uc *AccountUseCase) GetAccountsByCustomer(ctx context.Context, customerID string) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// GetAccountsByCustomerAndStatus lists a customer's accounts in one status.
func (uc *AccountUseCase) GetAccountsByCustomerAndStatus(ctx context.Context, customerID string, status domain.AccountStatus) ([]*domain.Account, error) {
	accounts, err := uc.GetAccountsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Status == status {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// GetAccountsByEmail returns the account bound to email as a slice of zero
// or one element.
func (uc *AccountUseCase) GetAccountsByEmail(ctx context.Context, email string) ([]*domain.Account, error) {
	account, err := uc.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return []*domain.Account{}, nil
		}
		return nil, err
	}
	return []*domain.Account{account}, nil
}

// ListAccountsByStatus lists every account in a status.
func (uc *AccountUseCase) ListAccountsByStatus(ctx context.Context, status domain.AccountStatus) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// UpdateStatus moves an account to a new status. The transition is validated
// before anything is written, and the write is conditional on the version
// that was read; a lost race returns domain.ErrConcurrencyConflict and is
// left to the caller to retry.
func (uc *AccountUseCase) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*domain.Account, error) {
	uc.logger.Info().
		Str("account_id", input.AccountID).
		Str("new_status", input.Status.String()).
		Msg("updating account status")
	if input.Reason != "" {
		uc.logger.Debug().Str("account_id", input.AccountID).Str("reason", input.Reason).Msg("status change reason")
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		uc.countOperation("update_status", resultLabel(err))
		return nil, err
	}

	oldStatus := account.Status
	eventType, err := domain.ValidateTransition(oldStatus, input.Status)
	if err != nil {
		uc.countOperation("update_status", "invalid_transition")
		if uc.metrics != nil {
			uc.metrics.RejectedTransitions.WithLabelValues(oldStatus.String(), input.Status.String()).Inc()
		}
		return nil, err
	}

	next := account.Clone()
	next.Status = input.Status

	saved, err := uc.persist(ctx, next, account.Version, eventType)
	if err != nil {
		uc.countOperation("update_status", resultLabel(err))
		if errors.Is(err, domain.ErrConcurrencyConflict) && uc.metrics != nil {
			uc.metrics.ConcurrencyConflicts.Inc()
		}
		return nil, err
	}

	uc.countOperation("update_status", "success")
	if uc.metrics != nil {
		uc.metrics.StatusTransitions.WithLabelValues(oldStatus.String(), saved.Status.String()).Inc()
	}

	uc.logger.Info().
		Str("account_id", saved.AccountID).
		Str("old_status", oldStatus.String()).
		Str("new_status", saved.Status.String()).
		Msg("account status updated")

	return saved, nil
}

// persist writes account, builds the resulting event from the stored record
// and hands it to the configured delivery path. The event is encoded before
// the commit so an unencodable event never leaves a committed change behind.
func (uc *AccountUseCase) persist(ctx context.Context, account *domain.Account, expectedVersion int64, eventType domain.EventType) (*domain.Account, error) {
	start := time.Now()

	var (
		saved *domain.Account
		event *domain.AccountEvent
	)

	write := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		s, err := uc.accountRepo.Save(txCtx, tx, account, expectedVersion)
		if err != nil {
			return err
		}

		e := domain.NewAccountEvent(s, eventType, uc.eventIDGen.Generate(), uc.now())
		payload, err := uc.encode(e)
		if err != nil {
			if uc.metrics != nil {
				uc.metrics.EventPublishFailures.WithLabelValues(eventType.String(), metrics.StageSerialization).Inc()
			}
			if !errors.Is(err, domain.ErrEventSerialization) {
				err = fmt.Errorf("%w: %v", domain.ErrEventSerialization, err)
			}
			return err
		}

		if uc.delivery == DeliveryOutbox {
			if err := uc.outboxRepo.Create(txCtx, tx, domain.NewOutboxEvent(e, payload)); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		saved, event = s, e
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, write)
	} else {
		err = write()
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountUpdateDuration.Observe(time.Since(start).Seconds())
	}

	if expectedVersion > 0 {
		uc.refreshCache(ctx, saved)
	}

	if uc.delivery == DeliveryDirect {
		// The channel publish happens outside the commit; this is the window
		// the outbox delivery mode closes. The write is durable at this point,
		// so a failed hand-off is logged and never reaches the caller.
		if err := uc.publisher.Publish(ctx, event.Key(), event); err != nil {
			uc.logger.Error().Err(err).
				Bool("transport", errors.Is(err, domain.ErrEventTransport)).
				Str("event_id", event.EventID).
				Str("account_id", event.AccountID).
				Str("event_type", event.EventType.String()).
				Int64("version", saved.Version).
				Msg("failed to hand committed account event to publisher")
		}
	}

	return saved, nil
}

func (uc *AccountUseCase) cachedAccount(ctx context.Context, accountID string) *domain.Account {
	if uc.cache == nil {
		return nil
	}

	account, err := uc.cache.Get(ctx, accountID)
	switch {
	case err != nil:
		uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("account cache lookup failed")
		uc.countCache("error")
		return nil
	case account == nil:
		uc.countCache("miss")
		return nil
	default:
		uc.countCache("hit")
		return account
	}
}

// refreshCache writes the committed snapshot so a slower reader holding an
// older version cannot repopulate the entry. Falls back to eviction when the
// write fails.
func (uc *AccountUseCase) refreshCache(ctx context.Context, account *domain.Account) {
	if uc.cache == nil {
		return
	}
	err := uc.cache.Set(ctx, account, uc.cacheTTL)
	if err == nil {
		return
	}
	uc.logger.Warn().Err(err).Str("account_id", account.AccountID).Msg("failed to refresh cached account")
	if err := uc.cache.Delete(ctx, account.AccountID); err != nil {
		uc.logger.Warn().Err(err).Str("account_id", account.AccountID).Msg("failed to invalidate cached account")
	}
}

func (uc *AccountUseCase) countOperation(operation, result string) {
	if uc.metrics != nil {
		uc.metrics.AccountOperations.WithLabelValues(operation, result).Inc()
	}
}

func (uc *AccountUseCase) countCache(result string) {
	if uc.metrics != nil {
		uc.metrics.AccountCacheLookups.WithLabelValues(result).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		return "already_exists"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrEventSerialization):
		return "serialization_failure"
	default:
		return "error"
	}
}
