// Package recovery issues and verifies short-lived password recovery codes
// backed by Redis.
package recovery

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeTTL is how long a recovery code stays valid.
const CodeTTL = 10 * time.Minute

// ErrCodeMismatch is returned when the presented code is wrong or expired
var ErrCodeMismatch = errors.New("recovery code is invalid or expired")

// Service stores recovery codes in Redis keyed by email.
type Service struct {
	client *redis.Client
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, addr, password string, db int) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Network:  "tcp",
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Service{client: client}, nil
}

// NewWithClient creates a Service with an existing client (for testing).
func NewWithClient(client *redis.Client) *Service {
	return &Service{client: client}
}

// Issue generates a 6-digit code for an email and stores it with CodeTTL.
// Re-issuing replaces any outstanding code.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, key(email), code, CodeTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks a code and deletes it on success so it cannot be replayed.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	stored, err := s.client.Get(ctx, key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCodeMismatch
		}
		return err
	}
	if stored != code {
		return ErrCodeMismatch
	}
	return s.client.Del(ctx, key(email)).Err()
}

// Close releases the Redis connection.
func (s *Service) Close() error {
	return s.client.Close()
}

func key(email string) string {
	return "recovery:" + email
}

// generateCode returns a cryptographically random 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
