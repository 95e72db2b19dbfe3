package profilestore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// updateFeed delivers committed profile writes to per-account subscribers
// over Redis pub/sub. Every published event carries the full replacement
// record, never a diff. Delivery can duplicate; consumers reconcile by
// last_updated.
type updateFeed struct {
	client *redis.Client
	logger *zap.Logger
}

func newUpdateFeed(client *redis.Client, logger *zap.Logger) *updateFeed {
	return &updateFeed{client: client, logger: logger}
}

func (f *updateFeed) publish(ctx context.Context, profile *domain.Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, feedChannel(profile.AccountID), payload).Err()
}

func (f *updateFeed) subscribe(ctx context.Context, accountID string) (*Subscription, error) {
	pubsub := f.client.Subscribe(ctx, feedChannel(accountID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	sub := &Subscription{
		updates: make(chan *domain.Profile, 8),
		close:   func() error { return pubsub.Close() },
	}

	go func() {
		defer close(sub.updates)
		for msg := range pubsub.Channel() {
			var profile domain.Profile
			if err := json.Unmarshal([]byte(msg.Payload), &profile); err != nil {
				f.logger.Warn("dropping undecodable profile update",
					zap.String("account_id", accountID), zap.Error(err))
				continue
			}
			select {
			case sub.updates <- &profile:
			default:
				f.logger.Warn("subscriber lagging, dropping profile update",
					zap.String("account_id", accountID))
			}
		}
	}()

	return sub, nil
}

func feedChannel(accountID string) string {
	return "profile-updates:" + accountID
}

// Subscription is a live per-account feed of profile replacement records.
// Cancel tears the feed down; the updates channel closes afterwards.
type Subscription struct {
	updates chan *domain.Profile
	close   func() error

	once sync.Once
}

// NewSubscription wraps an update channel in a Subscription. In-memory Store
// implementations use it to satisfy the Subscribe contract.
func NewSubscription(updates chan *domain.Profile, closeFn func() error) *Subscription {
	return &Subscription{updates: updates, close: closeFn}
}

// Updates returns the channel of pushed profile records.
func (s *Subscription) Updates() <-chan *domain.Profile {
	return s.updates
}

// Cancel stops delivery. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.close != nil {
			_ = s.close()
		}
	})
}
