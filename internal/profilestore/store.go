package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// ErrNotFound is returned when no profile exists for an account.
var ErrNotFound = errors.New("profile not found")

// HoldWindow carries the fields set when an account enters hold.
type HoldWindow struct {
	DurationDays int
	Start        time.Time
	End          time.Time
}

// PartialUpdate describes a partial profile mutation. Nil fields are left
// untouched. ClearHold removes the hold window and its duration together;
// SetHold installs a new one. The store owns last_updated and advances it on
// every committed write.
type PartialUpdate struct {
	ApprovalStatus *domain.ApprovalStatus
	ActivityStatus *domain.ActivityStatus
	StatusReason   *string
	SetHold        *HoldWindow
	ClearHold      bool
	EmployeeID     *string
	JoiningDate    *time.Time
}

// Store is the profile persistence contract the lifecycle subsystem
// consumes: point lookup, partial update, and a per-account push feed of
// update events.
type Store interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Fetch(ctx context.Context, accountID string) (*domain.Profile, error)
	Update(ctx context.Context, accountID string, patch PartialUpdate) (*domain.Profile, error)
	Subscribe(ctx context.Context, accountID string) (*Subscription, error)
}

// store composes the Postgres backing, the read-through Redis cache, and the
// Redis pub/sub push feed.
type store struct {
	pg     *pgStore
	cache  *profileCache
	feed   *updateFeed
	logger *zap.Logger
}

// New builds the composed profile store. The cache is skipped when cacheTTL
// is zero.
func New(pool *pgxpool.Pool, client *redis.Client, cacheTTL time.Duration, logger *zap.Logger) Store {
	return &store{
		pg:     newPGStore(pool),
		cache:  newProfileCache(client, cacheTTL, logger),
		feed:   newUpdateFeed(client, logger),
		logger: logger,
	}
}

func (s *store) Create(ctx context.Context, profile *domain.Profile) error {
	if err := s.pg.insert(ctx, profile); err != nil {
		return err
	}
	s.cache.set(ctx, profile)
	return nil
}

func (s *store) Fetch(ctx context.Context, accountID string) (*domain.Profile, error) {
	if cached := s.cache.get(ctx, accountID); cached != nil {
		return cached, nil
	}
	profile, err := s.pg.fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, profile)
	return profile, nil
}

func (s *store) Update(ctx context.Context, accountID string, patch PartialUpdate) (*domain.Profile, error) {
	profile, err := s.pg.update(ctx, accountID, patch)
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, profile)
	if err := s.feed.publish(ctx, profile); err != nil {
		s.logger.Warn("failed to publish profile update", zap.String("account_id", accountID), zap.Error(err))
	}
	return profile, nil
}

func (s *store) Subscribe(ctx context.Context, accountID string) (*Subscription, error) {
	return s.feed.subscribe(ctx, accountID)
}
