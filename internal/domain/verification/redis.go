package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/veroa/veroa-api/internal/pkg/apperr"
)

const (
	codeDigits         = 6
	defaultCodeTTL     = 10 * time.Minute
	defaultMaxAttempts = 5
	defaultCooldown    = time.Minute
)

// RedisConfig tunes the self-hosted provider
type RedisConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
	Cooldown    time.Duration
	HashCost    int
}

type codeRecord struct {
	Phone    string
	Hash     string
	Attempts int
}

type codeStore interface {
	// Reserve claims the resend cooldown for phone; false means one is active.
	Reserve(ctx context.Context, phone string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, id string, rec codeRecord, ttl time.Duration) error
	// Load returns nil when the code is missing or expired.
	Load(ctx context.Context, id string) (*codeRecord, error)
	IncrAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// DeliverFunc hands a plain code to whatever channel reaches the user
type DeliverFunc func(ctx context.Context, phone, code string) error

// RedisProvider generates codes itself and keeps only their bcrypt hash in
// Redis. It is used when no SMS vendor is configured; delivery defaults to
// writing the code to the log.
type RedisProvider struct {
	store   codeStore
	config  RedisConfig
	deliver DeliverFunc
}

// NewRedisProvider creates a provider over the given Redis client
func NewRedisProvider(client *redis.Client, cfg RedisConfig) *RedisProvider {
	return newRedisProvider(&redisStore{client: client}, cfg, logDelivery)
}

func newRedisProvider(store codeStore, cfg RedisConfig, deliver DeliverFunc) *RedisProvider {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultCodeTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &RedisProvider{store: store, config: cfg, deliver: deliver}
}

func logDelivery(ctx context.Context, phone, code string) error {
	log.Warn().Str("phone", phone).Str("code", code).Msg("Verification code (log delivery, no SMS vendor configured)")
	return nil
}

// SendVerificationCode stores a fresh code for phone and delivers it.
func (p *RedisProvider) SendVerificationCode(ctx context.Context, phone string) (string, error) {
	ok, err := p.store.Reserve(ctx, phone, p.config.Cooldown)
	if err != nil {
		return "", apperr.Wrap(ErrProviderUnavailable, err)
	}
	if !ok {
		return "", ErrCodeAlreadySent
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), p.config.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	id := uuid.New().String()
	if err := p.store.Save(ctx, id, codeRecord{Phone: phone, Hash: string(hash)}, p.config.CodeTTL); err != nil {
		return "", apperr.Wrap(ErrProviderUnavailable, err)
	}
	if err := p.deliver(ctx, phone, code); err != nil {
		_ = p.store.Delete(ctx, id)
		return "", apperr.Wrap(ErrProviderUnavailable, err)
	}
	return id, nil
}

// CheckVerificationCode consumes one attempt. A matching code deletes the
// record, so a code verifies at most once.
func (p *RedisProvider) CheckVerificationCode(ctx context.Context, verificationID, code string) (bool, error) {
	rec, err := p.store.Load(ctx, verificationID)
	if err != nil {
		return false, apperr.Wrap(ErrProviderUnavailable, err)
	}
	if rec == nil {
		return false, ErrVerificationNotFound
	}
	if rec.Attempts >= p.config.MaxAttempts {
		_ = p.store.Delete(ctx, verificationID)
		return false, ErrTooManyAttempts
	}

	attempts, err := p.store.IncrAttempts(ctx, verificationID)
	if err != nil {
		return false, apperr.Wrap(ErrProviderUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(code)) == nil {
		if err := p.store.Delete(ctx, verificationID); err != nil {
			return false, apperr.Wrap(ErrProviderUnavailable, err)
		}
		return true, nil
	}

	if attempts >= p.config.MaxAttempts {
		_ = p.store.Delete(ctx, verificationID)
	}
	return false, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

type redisStore struct {
	client *redis.Client
}

func codeKey(id string) string        { return "verification:code:" + id }
func cooldownKey(phone string) string { return "verification:cooldown:" + phone }

func (s *redisStore) Reserve(ctx context.Context, phone string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, cooldownKey(phone), 1, ttl).Result()
}

func (s *redisStore) Save(ctx context.Context, id string, rec codeRecord, ttl time.Duration) error {
	key := codeKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "phone", rec.Phone, "hash", rec.Hash, "attempts", rec.Attempts)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *redisStore) Load(ctx context.Context, id string) (*codeRecord, error) {
	fields, err := s.client.HGetAll(ctx, codeKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	return &codeRecord{Phone: fields["phone"], Hash: fields["hash"], Attempts: attempts}, nil
}

func (s *redisStore) IncrAttempts(ctx context.Context, id string) (int, error) {
	n, err := s.client.HIncrBy(ctx, codeKey(id), "attempts", 1).Result()
	return int(n), err
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, codeKey(id)).Err()
}
