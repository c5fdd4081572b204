package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	"github.com/iho/goaccount/internal/domain"
)

func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

var (
	pln       = domain.MustCurrency("PLN")
	accountID = domain.MustAccountID("acc-0192f4a6b7c8d9e0f1a2b3c4d5e6f708")
)

func openTestAccount(t *testing.T, id domain.AccountID, balance string) *domain.Account {
	t.Helper()

	account, _ := domain.OpenAccount(id, pln, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	if balance != "" {
		if _, err := account.Credit(domain.MustMoney(balance, pln), time.Now()); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	account.DrainEvents()
	return account
}
