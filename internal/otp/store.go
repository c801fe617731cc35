// Package otp issues and checks one-time passcodes for email verification.
// Codes live in Redis under otp:<email> and expire on their own, so there
// is no cleanup job.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 5 * time.Minute

var ErrCodeMismatch = errors.New("otp: code mismatch or expired")

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Issue generates a 6-digit code for the address and stores it with a
// fresh TTL, replacing any previous code.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := s.rdb.Set(ctx, key(email), code, ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks the code and consumes it on success. A missing key (never
// issued or expired) and a wrong code are indistinguishable to the caller.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	stored, err := s.rdb.Get(ctx, key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("read otp: %w", err)
	}
	if stored != code {
		return ErrCodeMismatch
	}

	if err := s.rdb.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func key(email string) string {
	return "otp:" + email
}
