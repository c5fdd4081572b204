package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/usecase"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on a request DTO.
func Validate(req any) error {
	return validate.Struct(req)
}

// OpenAccountRequest is the request body for opening an account.
type OpenAccountRequest struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

// ToUseCaseInput converts to usecase input.
func (r *OpenAccountRequest) ToUseCaseInput() usecase.OpenAccountInput {
	return usecase.OpenAccountInput{Currency: r.Currency}
}

// CreditRequest is the request body for crediting an account.
// Amount accepts both a JSON number and a numeric string.
type CreditRequest struct {
	Amount   json.Number `json:"amount" validate:"required,numeric"`
	Currency string      `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// ToUseCaseInput converts to usecase input.
func (r *CreditRequest) ToUseCaseInput(accountID string) (usecase.CreditAccountInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.CreditAccountInput{}, err
	}

	return usecase.CreditAccountInput{
		AccountID: accountID,
		Amount:    amount,
		Currency:  r.Currency,
	}, nil
}

// DebitRequest is the request body for debiting an account.
// OperationDate defaults to the server time when omitted.
type DebitRequest struct {
	Amount        json.Number `json:"amount" validate:"required,numeric"`
	Currency      string      `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	OperationDate *time.Time  `json:"operation_date,omitempty"`
}

// ToUseCaseInput converts to usecase input.
func (r *DebitRequest) ToUseCaseInput(accountID string) (usecase.DebitAccountInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.DebitAccountInput{}, err
	}

	return usecase.DebitAccountInput{
		OperationDate: r.OperationDate,
		AccountID:     accountID,
		Amount:        amount,
		Currency:      r.Currency,
	}, nil
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, n.String())
	}
	return amount, nil
}
