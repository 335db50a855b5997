package holding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/investracker/tracker/internal/domain"
)

const (
	redisUsersKey = "tracker:users"
	redisMaxTries = 5
)

// RedisRepository stores each user's holdings as one JSON document.
// Writes are read-modify-write under WATCH so concurrent edits do not clobber each other.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis holding repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func redisKey(userID string) string {
	return "tracker:holdings:" + userID
}

func (r *RedisRepository) List(ctx context.Context, userID string) ([]domain.Holding, error) {
	return r.load(ctx, r.client, userID)
}

func (r *RedisRepository) Get(ctx context.Context, userID, id string) (domain.Holding, error) {
	holdings, err := r.load(ctx, r.client, userID)
	if err != nil {
		return domain.Holding{}, err
	}
	i := slices.IndexFunc(holdings, func(h domain.Holding) bool { return h.ID == id })
	if i < 0 {
		return domain.Holding{}, ErrNotFound
	}
	return holdings[i], nil
}

func (r *RedisRepository) Insert(ctx context.Context, userID string, h domain.Holding) error {
	return r.modify(ctx, userID, func(holdings []domain.Holding) ([]domain.Holding, error) {
		if slices.ContainsFunc(holdings, func(existing domain.Holding) bool { return existing.ID == h.ID }) {
			return nil, fmt.Errorf("holding %s already exists", h.ID)
		}
		return append(holdings, h), nil
	})
}

func (r *RedisRepository) Update(ctx context.Context, userID string, h domain.Holding) error {
	return r.modify(ctx, userID, func(holdings []domain.Holding) ([]domain.Holding, error) {
		i := slices.IndexFunc(holdings, func(existing domain.Holding) bool { return existing.ID == h.ID })
		if i < 0 {
			return nil, ErrNotFound
		}
		holdings[i] = h
		return holdings, nil
	})
}

func (r *RedisRepository) Delete(ctx context.Context, userID, id string) error {
	return r.modify(ctx, userID, func(holdings []domain.Holding) ([]domain.Holding, error) {
		i := slices.IndexFunc(holdings, func(h domain.Holding) bool { return h.ID == id })
		if i < 0 {
			return nil, ErrNotFound
		}
		return slices.Delete(holdings, i, i+1), nil
	})
}

func (r *RedisRepository) ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) error {
	data, err := encodeDocument(holdings)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(userID), data, 0)
		pipe.SAdd(ctx, redisUsersKey, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving holdings: %w", err)
	}
	return nil
}

func (r *RedisRepository) SaveValuations(ctx context.Context, userID string, fresh []domain.Holding) error {
	byID := lo.KeyBy(pricedOnly(fresh), func(h domain.Holding) string { return h.ID })
	if len(byID) == 0 {
		return nil
	}
	return r.modify(ctx, userID, func(holdings []domain.Holding) ([]domain.Holding, error) {
		for i, current := range holdings {
			if f, ok := byID[current.ID]; ok {
				holdings[i], _ = current.Reprice(f)
			}
		}
		return holdings, nil
	})
}

func (r *RedisRepository) Users(ctx context.Context) ([]string, error) {
	users, err := r.client.SMembers(ctx, redisUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	slices.Sort(users)
	return users, nil
}

// modify applies fn to the user's document inside an optimistic transaction,
// retrying when another writer changed the document first.
func (r *RedisRepository) modify(ctx context.Context, userID string, fn func([]domain.Holding) ([]domain.Holding, error)) error {
	key := redisKey(userID)
	txf := func(tx *redis.Tx) error {
		holdings, err := r.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		updated, err := fn(holdings)
		if err != nil {
			return err
		}
		data, err := encodeDocument(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, redisUsersKey, userID)
			return nil
		})
		return err
	}

	for range redisMaxTries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("updating holdings for %s: too much contention", userID)
}

func (r *RedisRepository) load(ctx context.Context, c stringGetter, userID string) ([]domain.Holding, error) {
	data, err := c.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Holding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading holdings: %w", err)
	}

	holdings := []domain.Holding{}
	if err := json.Unmarshal(data, &holdings); err != nil {
		return nil, fmt.Errorf("decoding holdings for %s: %w", userID, err)
	}
	return holdings, nil
}

func encodeDocument(holdings []domain.Holding) ([]byte, error) {
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	data, err := json.Marshal(holdings)
	if err != nil {
		return nil, fmt.Errorf("encoding holdings: %w", err)
	}
	return data, nil
}
