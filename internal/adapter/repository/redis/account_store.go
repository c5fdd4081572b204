package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iho/goaccount/internal/domain"
)

// AccountStore keeps JSON account snapshots in Redis, with a set of all ids
// for listing.
type AccountStore struct {
	client *redis.Client
	prefix string
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(client *redis.Client) *AccountStore {
	return &AccountStore{
		client: client,
		prefix: "goaccount:",
	}
}

func (s *AccountStore) accountKey(id string) string {
	return s.prefix + "account:" + id
}

func (s *AccountStore) indexKey() string {
	return s.prefix + "accounts"
}

// Save writes the snapshot and indexes the id in one MULTI/EXEC.
func (s *AccountStore) Save(ctx context.Context, account *domain.Account) error {
	data, err := json.Marshal(account.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal account %s: %w", account.ID(), err)
	}

	id := account.ID().String()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accountKey(id), data, 0)
		pipe.SAdd(ctx, s.indexKey(), id)
		return nil
	})
	return err
}

// GetByID loads and rebuilds an account.
func (s *AccountStore) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	data, err := s.client.Get(ctx, s.accountKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return decodeAccount(data)
}

// List returns every indexed account. Ids whose snapshot is gone are skipped.
func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.Account{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.accountKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		account, err := decodeAccount([]byte(raw))
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func decodeAccount(data []byte) (*domain.Account, error) {
	var snapshot domain.AccountSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode account snapshot: %w", err)
	}
	return domain.RestoreAccount(snapshot)
}
