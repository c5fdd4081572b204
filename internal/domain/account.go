package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Debit rules.
const (
	// DailyDebitLimit is the number of debits allowed per calendar date.
	DailyDebitLimit = 3
)

// DebitFeeRate is the fee charged on every debit (0.5%).
var DebitFeeRate = decimal.RequireFromString("0.005")

// Payment is a recorded debit. Amount is the requested amount, before fee.
type Payment struct {
	Amount      Money     `json:"amount"`
	PerformedOn time.Time `json:"performed_on"`
}

// DailyDebits groups the payments recorded on one calendar date.
type DailyDebits struct {
	Date     Date      `json:"date"`
	Payments []Payment `json:"payments"`
}

// Account is the aggregate root for a single bank account.
// It is not safe for concurrent use; callers serialize access per account.
type Account struct {
	id        AccountID
	currency  Currency
	balance   Money
	debits    map[Date][]Payment
	createdAt time.Time
	updatedAt time.Time
	pending   []Event
}

// OpenAccount creates an account with a zero balance and records AccountOpened.
func OpenAccount(id AccountID, currency Currency, openedAt time.Time) (*Account, AccountOpened) {
	a := &Account{
		id:        id,
		currency:  currency,
		balance:   Zero(currency),
		debits:    make(map[Date][]Payment),
		createdAt: openedAt,
		updatedAt: openedAt,
	}

	event := AccountOpened{ID: id, Currency: currency, At: openedAt}
	a.record(event)

	return a, event
}

// Credit adds amount to the balance. There is no limit on credits.
func (a *Account) Credit(amount Money, at time.Time) (AccountCredited, error) {
	balance, err := a.balance.Add(amount)
	if err != nil {
		return AccountCredited{}, err
	}

	a.balance = balance
	a.updatedAt = at

	event := AccountCredited{ID: a.id, Amount: amount, Balance: balance, At: at}
	a.record(event)

	return event, nil
}

// Debit removes amount plus the debit fee from the balance.
//
// The daily limit is checked before the fee is computed, so a rejected
// attempt never costs anything. Rejected attempts are not recorded and do not
// count toward the limit.
func (a *Account) Debit(amount Money, operationDate time.Time) (AccountDebited, error) {
	day := DateOf(operationDate)

	if len(a.debits[day]) >= DailyDebitLimit {
		return AccountDebited{}, fmt.Errorf("%w: %d debits already recorded on %s", ErrDailyDebitLimitExceeded, DailyDebitLimit, day)
	}

	fee, err := DebitFee(amount)
	if err != nil {
		return AccountDebited{}, err
	}

	total, err := amount.Add(fee)
	if err != nil {
		return AccountDebited{}, err
	}

	sufficient, err := a.balance.GreaterThanOrEqual(total)
	if err != nil {
		return AccountDebited{}, err
	}
	if !sufficient {
		return AccountDebited{}, fmt.Errorf("%w: balance %s, required %s", ErrInsufficientFunds, a.balance, total)
	}

	balance, err := a.balance.Sub(total)
	if err != nil {
		return AccountDebited{}, err
	}

	a.balance = balance
	a.debits[day] = append(a.debits[day], Payment{Amount: amount, PerformedOn: operationDate})
	a.updatedAt = operationDate

	event := AccountDebited{
		ID:      a.id,
		Amount:  amount,
		Fee:     fee,
		Total:   total,
		Balance: balance,
		At:      operationDate,
	}
	a.record(event)

	return event, nil
}

// DebitFee returns the fee charged for debiting amount.
func DebitFee(amount Money) (Money, error) {
	return amount.Mul(DebitFeeRate)
}

// ID returns the account identifier.
func (a *Account) ID() AccountID { return a.id }

// Currency returns the account currency.
func (a *Account) Currency() Currency { return a.currency }

// Balance returns the current balance.
func (a *Account) Balance() Money { return a.balance }

// CreatedAt returns when the account was opened.
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the time of the last successful mutation.
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// DebitsOn returns a copy of the payments recorded on day.
func (a *Account) DebitsOn(day Date) []Payment {
	payments := a.debits[day]
	if len(payments) == 0 {
		return nil
	}
	out := make([]Payment, len(payments))
	copy(out, payments)
	return out
}

// DebitHistory returns every recorded debit grouped by date, oldest first.
func (a *Account) DebitHistory() []DailyDebits {
	history := make([]DailyDebits, 0, len(a.debits))
	for day := range a.debits {
		history = append(history, DailyDebits{Date: day, Payments: a.DebitsOn(day)})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	return history
}

// DrainEvents returns the events recorded since the last drain, in emission
// order, and clears the buffer.
func (a *Account) DrainEvents() []Event {
	events := a.pending
	a.pending = nil
	return events
}

func (a *Account) record(e Event) {
	a.pending = append(a.pending, e)
}

// AccountSnapshot is the persisted shape of an Account.
type AccountSnapshot struct {
	ID        AccountID     `json:"id"`
	Currency  Currency      `json:"currency"`
	Balance   Money         `json:"balance"`
	Debits    []DailyDebits `json:"debits"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot returns a deep copy of the account state. Pending events are not included.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		ID:        a.id,
		Currency:  a.currency,
		Balance:   a.balance,
		Debits:    a.DebitHistory(),
		CreatedAt: a.createdAt,
		UpdatedAt: a.updatedAt,
	}
}

// RestoreAccount rebuilds an Account from a snapshot, checking every invariant.
func RestoreAccount(s AccountSnapshot) (*Account, error) {
	if s.ID.IsZero() {
		return nil, fmt.Errorf("%w: snapshot has no account ID", ErrInvalidAccountID)
	}

	if s.Currency.IsZero() {
		return nil, fmt.Errorf("%w: snapshot %s has no currency", ErrInvalidCurrency, s.ID)
	}

	if !s.Balance.Currency().Equal(s.Currency) {
		return nil, fmt.Errorf("%w: snapshot %s balance in %s, account in %s", ErrCurrencyMismatch, s.ID, s.Balance.Currency(), s.Currency)
	}

	debits := make(map[Date][]Payment, len(s.Debits))
	for _, day := range s.Debits {
		for _, p := range day.Payments {
			if !p.Amount.Currency().Equal(s.Currency) {
				return nil, fmt.Errorf("%w: snapshot %s payment in %s", ErrCurrencyMismatch, s.ID, p.Amount.Currency())
			}
		}

		if len(day.Payments) == 0 {
			continue
		}

		merged := append(debits[day.Date], day.Payments...)
		if len(merged) > DailyDebitLimit {
			return nil, fmt.Errorf("%w: snapshot %s has %d debits on %s", ErrDailyDebitLimitExceeded, s.ID, len(merged), day.Date)
		}
		debits[day.Date] = merged
	}

	return &Account{
		id:        s.ID,
		currency:  s.Currency,
		balance:   s.Balance,
		debits:    debits,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
	}, nil
}
