package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goaccount/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	store     AccountStore
	locker    Locker
	publisher EventPublisher
	idGen     IDGenerator
	clock     Clock
	metrics   Metrics
	logger    zerolog.Logger
}

// Option configures an AccountUseCase.
type Option func(*AccountUseCase)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(uc *AccountUseCase) { uc.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(uc *AccountUseCase) { uc.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(uc *AccountUseCase) { uc.logger = l }
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	store AccountStore,
	locker Locker,
	publisher EventPublisher,
	idGen IDGenerator,
	opts ...Option,
) *AccountUseCase {
	uc := &AccountUseCase{
		store:     store,
		locker:    locker,
		publisher: publisher,
		idGen:     idGen,
		clock:     SystemClock{},
		metrics:   nopMetrics{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	Currency string
}

// CreditAccountInput represents input for crediting an account.
// An empty Currency means the account's own currency.
type CreditAccountInput struct {
	AccountID string
	Amount    decimal.Decimal
	Currency  string
}

// DebitAccountInput represents input for debiting an account.
// A nil OperationDate means now.
type DebitAccountInput struct {
	OperationDate *time.Time
	AccountID     string
	Amount        decimal.Decimal
	Currency      string
}

// OpenAccount opens a new account with a zero balance.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	start := time.Now()

	account, err := uc.openAccount(ctx, input)
	uc.observe(OperationOpen, start, err)
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", account.ID().String()).
		Str("currency", account.Currency().Code()).
		Msg("account opened")

	return account, nil
}

func (uc *AccountUseCase) openAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	currency, err := domain.NewCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	account, _ := domain.OpenAccount(uc.idGen.NewAccountID(), currency, uc.clock.Now())

	if err := uc.store.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %s: %w", account.ID(), err)
	}

	uc.publish(ctx, account.DrainEvents())

	return account, nil
}

// CreditAccount adds money to an account.
func (uc *AccountUseCase) CreditAccount(ctx context.Context, input CreditAccountInput) (*domain.Account, error) {
	return uc.mutate(ctx, OperationCredit, input.AccountID, func(account *domain.Account) error {
		amount, err := moneyFor(account, input.Amount, input.Currency)
		if err != nil {
			return err
		}

		_, err = account.Credit(amount, uc.clock.Now())
		return err
	})
}

// DebitAccount removes money plus the debit fee from an account.
func (uc *AccountUseCase) DebitAccount(ctx context.Context, input DebitAccountInput) (*domain.Account, error) {
	operationDate := uc.clock.Now()
	if input.OperationDate != nil {
		operationDate = *input.OperationDate
	}

	return uc.mutate(ctx, OperationDebit, input.AccountID, func(account *domain.Account) error {
		amount, err := moneyFor(account, input.Amount, input.Currency)
		if err != nil {
			return err
		}

		debited, err := account.Debit(amount, operationDate)
		if err != nil {
			return err
		}

		uc.metrics.ObserveFee(debited.Fee.Currency().Code(), debited.Fee.Float64())
		return nil
	})
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	accountID, err := domain.ParseAccountID(id)
	if err != nil {
		return nil, err
	}
	return uc.store.GetByID(ctx, accountID)
}

// GetBalance returns the current balance of an account.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id string) (domain.Money, error) {
	account, err := uc.GetAccount(ctx, id)
	if err != nil {
		return domain.Money{}, err
	}
	return account.Balance(), nil
}

// GetDebitHistory returns the recorded debits of an account grouped by date.
func (uc *AccountUseCase) GetDebitHistory(ctx context.Context, id string) ([]domain.DailyDebits, error) {
	account, err := uc.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.DebitHistory(), nil
}

// ListAccounts lists every stored account in no particular order.
func (uc *AccountUseCase) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return uc.store.List(ctx)
}

func (uc *AccountUseCase) mutate(
	ctx context.Context,
	operation string,
	rawID string,
	fn func(*domain.Account) error,
) (*domain.Account, error) {
	start := time.Now()

	account, err := uc.withLockedAccount(ctx, rawID, fn)
	uc.observe(operation, start, err)
	if err != nil {
		uc.logger.Debug().Err(err).
			Str("account_id", rawID).
			Str("operation", operation).
			Msg("account operation failed")
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", account.ID().String()).
		Str("operation", operation).
		Str("balance", account.Balance().String()).
		Msg("account updated")

	return account, nil
}

// withLockedAccount runs fn against the stored account while holding the
// account lock. The account is saved and its events published only when fn
// succeeds.
func (uc *AccountUseCase) withLockedAccount(ctx context.Context, rawID string, fn func(*domain.Account) error) (*domain.Account, error) {
	id, err := domain.ParseAccountID(rawID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultOperationTimeout)
	defer cancel()

	unlock, err := uc.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", id, err)
	}
	defer unlock()

	account, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(account); err != nil {
		return nil, err
	}

	if err := uc.store.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account %s: %w", id, err)
	}

	uc.publish(ctx, account.DrainEvents())

	return account, nil
}

// publish delivers events at most once. A failed delivery is logged and
// does not fail the operation, which is already persisted.
func (uc *AccountUseCase) publish(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		if err := uc.publisher.Publish(ctx, event); err != nil {
			uc.logger.Warn().Err(err).
				Str("account_id", event.AccountID().String()).
				Str("event_type", event.EventType()).
				Msg("failed to publish event")
		}
	}
}

func (uc *AccountUseCase) observe(operation string, start time.Time, err error) {
	uc.metrics.ObserveOperation(operation, outcomeOf(err), time.Since(start))
}

func moneyFor(account *domain.Account, amount decimal.Decimal, code string) (domain.Money, error) {
	currency := account.Currency()
	if code != "" {
		var err error
		if currency, err = domain.NewCurrency(code); err != nil {
			return domain.Money{}, err
		}
	}
	return domain.NewMoney(amount, currency)
}

var rejections = []error{
	domain.ErrInvalidAmount,
	domain.ErrCurrencyMismatch,
	domain.ErrInvalidCurrency,
	domain.ErrInvalidAccountID,
	domain.ErrAccountNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrDailyDebitLimitExceeded,
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return OutcomeRejected
		}
	}
	return OutcomeError
}
