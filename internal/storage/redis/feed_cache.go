package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AzenoHI/travel-hi/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// FeedCache keeps recent list-query results so the map view does not hit
// postgres on every pan. Entries are invalidated wholesale whenever an
// incident is accepted.
type FeedCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

type cachedFeed struct {
	Reports []domain.Incident `json:"reports"`
	Total   int64             `json:"total"`
}

func NewFeedCache(r *Redis, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FeedCache{
		client: r.Client,
		prefix: "reports:feed:",
		ttl:    ttl,
	}
}

func (c *FeedCache) Get(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, int64, bool) {
	data, err := c.client.Get(ctx, c.key(filter)).Bytes()
	if err != nil {
		return nil, 0, false
	}

	var feed cachedFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, 0, false
	}
	return feed.Reports, feed.Total, true
}

func (c *FeedCache) Set(ctx context.Context, filter domain.ReportFilter, reports []domain.Incident, total int64) error {
	b, err := json.Marshal(cachedFeed{Reports: reports, Total: total})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(filter), b, c.ttl).Err()
}

// Invalidate drops every cached feed page. Called on acceptance so new
// incidents show up in list queries immediately.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
	}
	return iter.Err()
}

func (c *FeedCache) key(filter domain.ReportFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha1.Sum(raw)
	return fmt.Sprintf("%s%s", c.prefix, hex.EncodeToString(sum[:]))
}
