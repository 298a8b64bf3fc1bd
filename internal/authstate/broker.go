package authstate

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Broker carries auth-state changes between instances.
type Broker interface {
	Publish(ctx context.Context, sessionID string, user *User) error

	// Subscribe delivers every change published for sessionID until the
	// returned close func is called or ctx ends.
	Subscribe(ctx context.Context, sessionID string) (<-chan *User, func() error, error)
}

const channelPrefix = "authstate:"

// RedisBroker implements Broker with redis pub/sub.
// Payloads are the JSON encoding of *User; "null" means signed out.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channelFor(sessionID string) string {
	return channelPrefix + sessionID
}

func (b *RedisBroker) Publish(ctx context.Context, sessionID string, user *User) error {
	payload, err := encodeUser(user)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(sessionID), payload).Err()
}

func (b *RedisBroker) Subscribe(
	ctx context.Context,
	sessionID string,
) (<-chan *User, func() error, error) {

	ps := b.client.Subscribe(ctx, channelFor(sessionID))

	// wait for the subscription to be confirmed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("authstate: subscribe %s: %w", sessionID, err)
	}

	out := make(chan *User)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				user, err := decodeUser(msg.Payload)
				if err != nil {
					logger.Warn("authstate: dropping malformed payload", map[string]any{
						"channel": msg.Channel,
						"error":   err.Error(),
					})
					continue
				}
				select {
				case out <- user:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, ps.Close, nil
}

func encodeUser(user *User) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("authstate: encode user: %w", err)
	}
	return string(data), nil
}

func decodeUser(payload string) (*User, error) {
	var user *User
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return nil, fmt.Errorf("authstate: decode user: %w", err)
	}
	if user != nil && user.ID == "" {
		return nil, fmt.Errorf("authstate: decode user: missing user_id")
	}
	return user, nil
}
