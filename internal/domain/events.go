package domain

import "time"

// Event types
const (
	EventTypeAccountOpened   = "account.opened"
	EventTypeAccountCredited = "account.credited"
	EventTypeAccountDebited  = "account.debited"
)

// AggregateTypeAccount is the aggregate type carried by account events.
const AggregateTypeAccount = "account"

// Event is an immutable fact produced by a successful account mutation.
type Event interface {
	EventType() string
	AccountID() AccountID
	OccurredAt() time.Time
}

// AccountOpened is recorded once, when the account is created.
type AccountOpened struct {
	ID       AccountID
	Currency Currency
	At       time.Time
}

func (e AccountOpened) EventType() string     { return EventTypeAccountOpened }
func (e AccountOpened) AccountID() AccountID  { return e.ID }
func (e AccountOpened) OccurredAt() time.Time { return e.At }

// AccountCredited carries the credited amount and the resulting balance.
type AccountCredited struct {
	ID      AccountID
	Amount  Money
	Balance Money
	At      time.Time
}

func (e AccountCredited) EventType() string     { return EventTypeAccountCredited }
func (e AccountCredited) AccountID() AccountID  { return e.ID }
func (e AccountCredited) OccurredAt() time.Time { return e.At }

// AccountDebited carries the requested amount, the fee, the fee-inclusive
// total actually removed and the resulting balance.
type AccountDebited struct {
	ID      AccountID
	Amount  Money
	Fee     Money
	Total   Money
	Balance Money
	At      time.Time
}

func (e AccountDebited) EventType() string     { return EventTypeAccountDebited }
func (e AccountDebited) AccountID() AccountID  { return e.ID }
func (e AccountDebited) OccurredAt() time.Time { return e.At }

// AccountOpenedPayload is the wire payload of AccountOpened.
type AccountOpenedPayload struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
	EventAt   string `json:"event_at"`
}

// AccountCreditedPayload is the wire payload of AccountCredited.
type AccountCreditedPayload struct {
	AccountID string `json:"account_id"`
	Amount    Money  `json:"amount"`
	Balance   Money  `json:"balance"`
	EventAt   string `json:"event_at"`
}

// AccountDebitedPayload is the wire payload of AccountDebited.
type AccountDebitedPayload struct {
	AccountID string `json:"account_id"`
	Amount    Money  `json:"amount"`
	Fee       Money  `json:"fee"`
	Total     Money  `json:"total"`
	Balance   Money  `json:"balance"`
	EventAt   string `json:"event_at"`
}

// EventPayload returns the JSON-ready payload for e.
func EventPayload(e Event) any {
	at := e.OccurredAt().Format(time.RFC3339Nano)

	switch ev := e.(type) {
	case AccountOpened:
		return AccountOpenedPayload{AccountID: ev.ID.String(), Currency: ev.Currency.Code(), EventAt: at}
	case AccountCredited:
		return AccountCreditedPayload{AccountID: ev.ID.String(), Amount: ev.Amount, Balance: ev.Balance, EventAt: at}
	case AccountDebited:
		return AccountDebitedPayload{
			AccountID: ev.ID.String(),
			Amount:    ev.Amount,
			Fee:       ev.Fee,
			Total:     ev.Total,
			Balance:   ev.Balance,
			EventAt:   at,
		}
	default:
		return map[string]string{"account_id": e.AccountID().String(), "event_at": at}
	}
}
