package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const orderClaimPrefix = "fulfillment:order:"

// ClaimRepo holds short-lived dedup claims on partner order external ids.
type ClaimRepo struct {
	client *goredis.Client
}

func NewClaimRepo(client *goredis.Client) *ClaimRepo {
	return &ClaimRepo{client: client}
}

// Claim returns true when the caller now owns externalID. A false result
// means another delivery already claimed it within ttl.
func (r *ClaimRepo) Claim(ctx context.Context, externalID string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid order claim payload")
	}

	ok, err := r.client.SetNX(ctx, orderClaimKey(externalID), time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim order: %w", err)
	}
	return ok, nil
}

func (r *ClaimRepo) Release(ctx context.Context, externalID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, orderClaimKey(strings.TrimSpace(externalID))).Err(); err != nil {
		return fmt.Errorf("release order claim: %w", err)
	}
	return nil
}

func orderClaimKey(externalID string) string {
	return orderClaimPrefix + externalID
}
