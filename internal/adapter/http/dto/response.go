package dto

import (
	"time"

	"github.com/iho/goaccount/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string       `json:"id"`
	Currency  string       `json:"currency"`
	Balance   domain.Money `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID().String(),
		Currency:  a.Currency().Code(),
		Balance:   a.Balance(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
	}
}

// ListAccountsResponse represents a list of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// AccountsFromDomain converts a slice of accounts.
func AccountsFromDomain(accounts []*domain.Account) ListAccountsResponse {
	resp := ListAccountsResponse{
		Accounts: make([]*AccountResponse, 0, len(accounts)),
		Total:    len(accounts),
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, AccountFromDomain(a))
	}
	return resp
}

// BalanceResponse is the current balance of one account.
type BalanceResponse struct {
	AccountID string       `json:"account_id"`
	Balance   domain.Money `json:"balance"`
}

// PaymentResponse is one successful debit.
type PaymentResponse struct {
	Amount      domain.Money `json:"amount"`
	PerformedOn time.Time    `json:"performed_on"`
}

// DailyDebitsResponse groups the debits of one calendar date.
type DailyDebitsResponse struct {
	Date     domain.Date       `json:"date"`
	Count    int               `json:"count"`
	Payments []PaymentResponse `json:"payments"`
}

// DebitHistoryResponse lists debits per date, oldest first.
type DebitHistoryResponse struct {
	AccountID string                `json:"account_id"`
	Days      []DailyDebitsResponse `json:"days"`
}

// DebitHistoryFromDomain converts the per-date debit history.
func DebitHistoryFromDomain(accountID string, history []domain.DailyDebits) DebitHistoryResponse {
	resp := DebitHistoryResponse{
		AccountID: accountID,
		Days:      make([]DailyDebitsResponse, 0, len(history)),
	}
	for _, day := range history {
		payments := make([]PaymentResponse, 0, len(day.Payments))
		for _, p := range day.Payments {
			payments = append(payments, PaymentResponse{Amount: p.Amount, PerformedOn: p.PerformedOn})
		}
		resp.Days = append(resp.Days, DailyDebitsResponse{
			Date:     day.Date,
			Count:    len(payments),
			Payments: payments,
		})
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
