package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/goaccount/internal/domain"
)

const (
	upsertAccountSQL = `INSERT INTO accounts (id, currency, balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

	deletePaymentsSQL = `DELETE FROM debit_payments WHERE account_id = $1`

	insertPaymentSQL = `INSERT INTO debit_payments (account_id, operation_date, seq, amount, performed_on)
VALUES ($1, $2, $3, $4, $5)`

	selectAccountSQL = `SELECT id, currency, balance::text, created_at, updated_at
FROM accounts WHERE id = $1`

	selectAccountsSQL = `SELECT id, currency, balance::text, created_at, updated_at
FROM accounts`

	selectPaymentsSQL = `SELECT account_id, operation_date::text, amount::text, performed_on
FROM debit_payments WHERE account_id = $1
ORDER BY operation_date, seq`

	selectAllPaymentsSQL = `SELECT account_id, operation_date::text, amount::text, performed_on
FROM debit_payments
ORDER BY account_id, operation_date, seq`
)

// AccountRepository stores accounts in the accounts table and their recorded
// debits in debit_payments.
type AccountRepository struct {
	pool      pgxPool
	txManager *TxManager
	retrier   *Retrier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool, retrier *Retrier) *AccountRepository {
	return newAccountRepositoryWithPool(pool, retrier)
}

func newAccountRepositoryWithPool(pool pgxPool, retrier *Retrier) *AccountRepository {
	return &AccountRepository{
		pool:      pool,
		txManager: newTxManagerWithPool(pool),
		retrier:   retrier,
	}
}

// Save replaces the stored account and its debit ledger in one transaction.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	snapshot := account.Snapshot()

	return r.retrier.Retry(ctx, func() error {
		return r.txManager.WithTx(ctx, func(tx pgx.Tx) error {
			return saveSnapshot(ctx, tx, snapshot)
		})
	})
}

func saveSnapshot(ctx context.Context, tx pgx.Tx, s domain.AccountSnapshot) error {
	id := s.ID.String()

	if _, err := tx.Exec(ctx, upsertAccountSQL,
		id, s.Currency.Code(), s.Balance.Amount(), s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert account %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, deletePaymentsSQL, id); err != nil {
		return fmt.Errorf("clear debits of %s: %w", id, err)
	}

	for _, day := range s.Debits {
		for seq, p := range day.Payments {
			if _, err := tx.Exec(ctx, insertPaymentSQL,
				id, day.Date.String(), seq, p.Amount.Amount(), p.PerformedOn,
			); err != nil {
				return fmt.Errorf("insert debit of %s: %w", id, err)
			}
		}
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	row, err := scanAccountRow(r.pool.QueryRow(ctx, selectAccountSQL, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, selectPaymentsSQL, id.String())
	if err != nil {
		return nil, err
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, err
	}

	return row.toAccount(payments[row.id])
}

// List returns every stored account.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, selectAccountsSQL)
	if err != nil {
		return nil, err
	}
	accountRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (accountRow, error) {
		return scanAccountRow(row)
	})
	if err != nil {
		return nil, err
	}

	paymentRows, err := r.pool.Query(ctx, selectAllPaymentsSQL)
	if err != nil {
		return nil, err
	}
	payments, err := collectPayments(paymentRows)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(accountRows))
	for _, row := range accountRows {
		account, err := row.toAccount(payments[row.id])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

type accountRow struct {
	id        string
	currency  string
	balance   string
	createdAt time.Time
	updatedAt time.Time
}

func scanAccountRow(row pgx.Row) (accountRow, error) {
	var a accountRow
	err := row.Scan(&a.id, &a.currency, &a.balance, &a.createdAt, &a.updatedAt)
	return a, err
}

type paymentRow struct {
	date        string
	amount      string
	performedOn time.Time
}

// collectPayments groups payment rows by account id, keeping row order.
func collectPayments(rows pgx.Rows) (map[string][]paymentRow, error) {
	defer rows.Close()

	out := make(map[string][]paymentRow)
	for rows.Next() {
		var (
			accountID string
			p         paymentRow
		)
		if err := rows.Scan(&accountID, &p.date, &p.amount, &p.performedOn); err != nil {
			return nil, err
		}
		out[accountID] = append(out[accountID], p)
	}
	return out, rows.Err()
}

func (a accountRow) toAccount(payments []paymentRow) (*domain.Account, error) {
	id, err := domain.ParseAccountID(a.id)
	if err != nil {
		return nil, err
	}

	currency, err := domain.NewCurrency(a.currency)
	if err != nil {
		return nil, err
	}

	balance, err := parseMoney(a.balance, currency)
	if err != nil {
		return nil, err
	}

	var debits []domain.DailyDebits
	for _, p := range payments {
		date, err := domain.ParseDate(p.date)
		if err != nil {
			return nil, err
		}
		amount, err := parseMoney(p.amount, currency)
		if err != nil {
			return nil, err
		}

		payment := domain.Payment{Amount: amount, PerformedOn: p.performedOn}
		if n := len(debits); n > 0 && debits[n-1].Date == date {
			debits[n-1].Payments = append(debits[n-1].Payments, payment)
			continue
		}
		debits = append(debits, domain.DailyDebits{Date: date, Payments: []domain.Payment{payment}})
	}

	return domain.RestoreAccount(domain.AccountSnapshot{
		ID:        id,
		Currency:  currency,
		Balance:   balance,
		Debits:    debits,
		CreatedAt: a.createdAt,
		UpdatedAt: a.updatedAt,
	})
}

func parseMoney(s string, currency domain.Currency) (domain.Money, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return domain.Money{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return domain.NewMoney(amount, currency)
}
