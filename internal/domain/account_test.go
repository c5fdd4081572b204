package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccountID = MustAccountID("acc-0192f4a6b7c8d9e0f1a2b3c4d5e6f708")

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

// accountWithBalance opens an account, credits it and clears its events.
func accountWithBalance(t *testing.T, currency string, balance string) *Account {
	t.Helper()

	c := MustCurrency(currency)
	acc, _ := OpenAccount(testAccountID, c, time.Now())
	if balance != "" {
		_, err := acc.Credit(MustMoney(balance, c), time.Now())
		require.NoError(t, err)
	}
	acc.DrainEvents()
	return acc
}

func assertEvent[E Event](t *testing.T, events []Event) E {
	t.Helper()
	require.Len(t, events, 1)
	event, ok := events[0].(E)
	require.True(t, ok, "expected %T, got %T", *new(E), events[0])
	return event
}

func TestOpenAccount(t *testing.T) {
	pln := MustCurrency("PLN")
	openedAt := mustTime(t, "2025-06-01T09:00:00Z")

	acc, opened := OpenAccount(testAccountID, pln, openedAt)

	assert.Equal(t, testAccountID, acc.ID())
	assert.Equal(t, pln, acc.Currency())
	assert.Equal(t, "0.00 PLN", acc.Balance().String())
	assert.Empty(t, acc.DebitHistory())
	assert.Equal(t, openedAt, acc.CreatedAt())

	event := assertEvent[AccountOpened](t, acc.DrainEvents())
	assert.Equal(t, opened, event)
	assert.Equal(t, testAccountID, event.AccountID())
	assert.Equal(t, pln, event.Currency)
	assert.Equal(t, EventTypeAccountOpened, event.EventType())
	assert.Equal(t, openedAt, event.OccurredAt())

	assert.Empty(t, acc.DrainEvents(), "drain clears the buffer")
}

func TestAccount_Credit(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "")

	first := MustMoney("100.50", pln)
	_, err := acc.Credit(first, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 100.50, acc.Balance().Float64())

	event := assertEvent[AccountCredited](t, acc.DrainEvents())
	assert.Equal(t, testAccountID, event.ID)
	assert.True(t, event.Amount.Equal(first))
	assert.Equal(t, "100.50 PLN", event.Balance.String())

	second := MustMoney("55.43", pln)
	returned, err := acc.Credit(second, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 155.93, acc.Balance().Float64())

	event = assertEvent[AccountCredited](t, acc.DrainEvents())
	assert.Equal(t, returned, event)
	assert.Equal(t, "155.93 PLN", event.Balance.String())
}

func TestAccount_CreditIsCommutative(t *testing.T) {
	pln := MustCurrency("PLN")
	x, y := MustMoney("12.34", pln), MustMoney("0.66", pln)

	a := accountWithBalance(t, "PLN", "")
	_, _ = a.Credit(x, time.Now())
	_, _ = a.Credit(y, time.Now())

	b := accountWithBalance(t, "PLN", "")
	_, _ = b.Credit(y, time.Now())
	_, _ = b.Credit(x, time.Now())

	assert.True(t, a.Balance().Equal(b.Balance()))
	assert.Equal(t, "13.00 PLN", a.Balance().String())
}

func TestAccount_CreditCurrencyMismatch(t *testing.T) {
	acc := accountWithBalance(t, "PLN", "10.00")
	before := acc.Snapshot()

	_, err := acc.Credit(MustMoney("5.00", MustCurrency("EUR")), time.Now())
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.Equal(t, before, acc.Snapshot())
	assert.Empty(t, acc.DrainEvents())
}

func TestAccount_Debit(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "1000.00")

	amount := MustMoney("10.00", pln)
	operationDate := mustTime(t, "2025-06-02T18:00:00Z")

	// 1000 - 10 - (10 * 0.5%) = 989.95
	_, err := acc.Debit(amount, operationDate)
	require.NoError(t, err)
	assert.Equal(t, 989.95, acc.Balance().Float64())

	payments := acc.DebitsOn(DateOf(operationDate))
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(amount), "ledger keeps the pre-fee amount")
	assert.Equal(t, operationDate, payments[0].PerformedOn)

	event := assertEvent[AccountDebited](t, acc.DrainEvents())
	assert.Equal(t, testAccountID, event.ID)
	assert.Equal(t, "10.00 PLN", event.Amount.String())
	assert.Equal(t, "0.05 PLN", event.Fee.String())
	assert.Equal(t, 10.05, event.Total.Float64())
	assert.Equal(t, 989.95, event.Balance.Float64())
}

func TestAccount_DebitFeeIsCheckedAgainstBalance(t *testing.T) {
	acc := accountWithBalance(t, "PLN", "100.00")
	before := acc.Snapshot()

	// 100.00 + 0.50 fee > 100.00
	_, err := acc.Debit(MustMoney("100.00", MustCurrency("PLN")), time.Now())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, "100.00 PLN", acc.Balance().String())
	assert.Equal(t, before, acc.Snapshot())
	assert.Empty(t, acc.DrainEvents())
}

func TestAccount_DebitExactFeeInclusiveBalance(t *testing.T) {
	acc := accountWithBalance(t, "PLN", "100.50")

	_, err := acc.Debit(MustMoney("100.00", MustCurrency("PLN")), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.00 PLN", acc.Balance().String())
}

func TestAccount_DebitsOnDifferentDates(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "100.00")

	dates := []string{
		"2025-06-01T15:00:00+00:00",
		"2025-06-02T18:01:00+00:00",
		"2025-06-02T18:02:00+00:00",
		"2025-06-02T19:03:00+00:00",
	}
	for _, d := range dates {
		_, err := acc.Debit(MustMoney("10.00", pln), mustTime(t, d))
		require.NoError(t, err)
	}

	history := acc.DebitHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "2025-06-01", history[0].Date.String())
	assert.Len(t, history[0].Payments, 1)
	assert.Equal(t, "2025-06-02", history[1].Date.String())
	assert.Len(t, history[1].Payments, 3)
}

func TestAccount_DailyDebitLimit(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "100.00")
	operationDate := mustTime(t, "2025-06-02T18:00:00Z")

	for i := 0; i < DailyDebitLimit; i++ {
		_, err := acc.Debit(MustMoney("10.00", pln), operationDate)
		require.NoError(t, err)
	}
	acc.DrainEvents()
	before := acc.Snapshot()

	// Later the same day, any amount.
	_, err := acc.Debit(MustMoney("0.01", pln), operationDate.Add(5*time.Hour))
	assert.ErrorIs(t, err, ErrDailyDebitLimitExceeded)
	assert.Equal(t, before, acc.Snapshot())
	assert.Empty(t, acc.DrainEvents())

	// The next day is unaffected.
	_, err = acc.Debit(MustMoney("10.00", pln), operationDate.Add(24*time.Hour))
	require.NoError(t, err)
}

func TestAccount_LimitIsCheckedBeforeFunds(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "30.15")
	operationDate := mustTime(t, "2025-06-02T08:00:00Z")

	for i := 0; i < DailyDebitLimit; i++ {
		_, err := acc.Debit(MustMoney("10.00", pln), operationDate)
		require.NoError(t, err)
	}
	assert.Equal(t, "0.00 PLN", acc.Balance().String())

	// Both rules are violated; the limit wins.
	_, err := acc.Debit(MustMoney("10.00", pln), operationDate)
	assert.ErrorIs(t, err, ErrDailyDebitLimitExceeded)
}

func TestAccount_RejectedDebitDoesNotCountTowardLimit(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "30.15")
	operationDate := mustTime(t, "2025-06-02T08:00:00Z")

	_, err := acc.Debit(MustMoney("1000.00", pln), operationDate)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	for i := 0; i < DailyDebitLimit; i++ {
		_, err := acc.Debit(MustMoney("10.00", pln), operationDate)
		require.NoError(t, err)
	}
	assert.Len(t, acc.DebitsOn(DateOf(operationDate)), DailyDebitLimit)
}

func TestAccount_DebitDateUsesOperationLocation(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "100.00")

	// 23:30 in Warsaw is 21:30 UTC on the same date; 00:30 the next day in
	// Warsaw is still the previous date in UTC.
	warsaw := time.FixedZone("CEST", 2*60*60)
	late := time.Date(2025, 6, 2, 23, 30, 0, 0, warsaw)
	afterMidnight := time.Date(2025, 6, 3, 0, 30, 0, 0, warsaw)

	_, err := acc.Debit(MustMoney("1.00", pln), late)
	require.NoError(t, err)
	_, err = acc.Debit(MustMoney("1.00", pln), afterMidnight)
	require.NoError(t, err)

	assert.Len(t, acc.DebitsOn(Date{Year: 2025, Month: time.June, Day: 2}), 1)
	assert.Len(t, acc.DebitsOn(Date{Year: 2025, Month: time.June, Day: 3}), 1)
}

func TestAccount_DebitCurrencyMismatch(t *testing.T) {
	acc := accountWithBalance(t, "PLN", "100.00")
	before := acc.Snapshot()

	_, err := acc.Debit(MustMoney("10.00", MustCurrency("EUR")), time.Now())
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Equal(t, before, acc.Snapshot())
	assert.Empty(t, acc.DrainEvents())
}

func TestAccount_WholeFlow(t *testing.T) {
	eur := MustCurrency("EUR")
	acc, _ := OpenAccount(testAccountID, eur, time.Now())
	assert.Equal(t, "0.00 EUR", acc.Balance().String())

	_, err := acc.Credit(MustMoney("200", eur), time.Now())
	require.NoError(t, err)
	_, err = acc.Credit(MustMoney("35.55", eur), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "235.55 EUR", acc.Balance().String())

	now := time.Now()
	first, err := acc.Debit(MustMoney("10", eur), now)
	require.NoError(t, err)
	second, err := acc.Debit(MustMoney("20", eur), now)
	require.NoError(t, err)

	assert.Equal(t, "0.05 EUR", first.Fee.String())
	assert.Equal(t, "0.10 EUR", second.Fee.String())
	assert.Equal(t, "205.40 EUR", acc.Balance().String())

	events := acc.DrainEvents()
	require.Len(t, events, 5)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{
		EventTypeAccountOpened,
		EventTypeAccountCredited,
		EventTypeAccountCredited,
		EventTypeAccountDebited,
		EventTypeAccountDebited,
	}, types)
}

func TestAccount_SnapshotRoundTrip(t *testing.T) {
	pln := MustCurrency("PLN")
	acc := accountWithBalance(t, "PLN", "500.00")
	_, err := acc.Debit(MustMoney("10.00", pln), mustTime(t, "2025-06-01T10:00:00Z"))
	require.NoError(t, err)
	_, err = acc.Debit(MustMoney("20.00", pln), mustTime(t, "2025-06-02T10:00:00Z"))
	require.NoError(t, err)

	data, err := json.Marshal(acc.Snapshot())
	require.NoError(t, err)

	var snapshot AccountSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))

	restored, err := RestoreAccount(snapshot)
	require.NoError(t, err)

	assert.Equal(t, acc.ID(), restored.ID())
	assert.True(t, acc.Balance().Equal(restored.Balance()))
	assert.Len(t, restored.DebitHistory(), 2)
	assert.Empty(t, restored.DrainEvents())
}

func TestRestoreAccount_Invariants(t *testing.T) {
	pln := MustCurrency("PLN")
	eur := MustCurrency("EUR")
	day := Date{Year: 2025, Month: time.June, Day: 1}
	payment := Payment{Amount: MustMoney("1.00", pln), PerformedOn: time.Now()}

	tests := []struct {
		name     string
		snapshot AccountSnapshot
		wantErr  error
	}{
		{
			name:     "missing id",
			snapshot: AccountSnapshot{Currency: pln, Balance: Zero(pln)},
			wantErr:  ErrInvalidAccountID,
		},
		{
			name:     "missing currency",
			snapshot: AccountSnapshot{ID: testAccountID, Balance: Zero(pln)},
			wantErr:  ErrInvalidCurrency,
		},
		{
			name:     "balance in other currency",
			snapshot: AccountSnapshot{ID: testAccountID, Currency: pln, Balance: Zero(eur)},
			wantErr:  ErrCurrencyMismatch,
		},
		{
			name: "too many debits on one date",
			snapshot: AccountSnapshot{
				ID: testAccountID, Currency: pln, Balance: Zero(pln),
				Debits: []DailyDebits{{Date: day, Payments: []Payment{payment, payment, payment, payment}}},
			},
			wantErr: ErrDailyDebitLimitExceeded,
		},
		{
			name: "duplicate dates are merged before the limit check",
			snapshot: AccountSnapshot{
				ID: testAccountID, Currency: pln, Balance: Zero(pln),
				Debits: []DailyDebits{
					{Date: day, Payments: []Payment{payment, payment}},
					{Date: day, Payments: []Payment{payment, payment}},
				},
			},
			wantErr: ErrDailyDebitLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreAccount(tt.snapshot)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEventPayload(t *testing.T) {
	pln := MustCurrency("PLN")
	at := mustTime(t, "2025-06-02T18:00:00Z")

	payload := EventPayload(AccountDebited{
		ID:      testAccountID,
		Amount:  MustMoney("10.00", pln),
		Fee:     MustMoney("0.05", pln),
		Total:   MustMoney("10.05", pln),
		Balance: MustMoney("89.95", pln),
		At:      at,
	})

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"account_id": "acc-0192f4a6b7c8d9e0f1a2b3c4d5e6f708",
		"amount": {"amount": "10.00", "currency": "PLN"},
		"fee": {"amount": "0.05", "currency": "PLN"},
		"total": {"amount": "10.05", "currency": "PLN"},
		"balance": {"amount": "89.95", "currency": "PLN"},
		"event_at": "2025-06-02T18:00:00Z"
	}`, string(data))
}
