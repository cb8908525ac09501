// internal/cache/stock_cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hvdc-project/warehouse-flow/internal/config"
	"github.com/hvdc-project/warehouse-flow/internal/domain"
)

const (
	dashboardKey          = "warehouse_flow:dashboard"
	stockRecordsKeyPrefix = "warehouse_flow:records"
)

// StockCache fronts the read-side queries. A disabled cache degrades to
// the noop implementation so callers never branch on configuration.
type StockCache interface {
	GetDashboard(ctx context.Context) (*domain.StockDashboard, bool, error)
	SetDashboard(ctx context.Context, dash *domain.StockDashboard) error
	GetRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, bool, error)
	SetRecords(ctx context.Context, filter domain.StockFilter, records []domain.StockRecord, total int) error
	InvalidateAll(ctx context.Context) error
}

type redisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopStockCache struct{}

func NewStockCache(cfg config.CacheConfig) (StockCache, error) {
	if !cfg.Enabled {
		return &noopStockCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisStockCache{client: client, ttl: ttl}, nil
}

func NewNoopStockCache() StockCache {
	return &noopStockCache{}
}

func (c *redisStockCache) GetDashboard(ctx context.Context) (*domain.StockDashboard, bool, error) {
	payload, err := c.client.Get(ctx, dashboardKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var dash domain.StockDashboard
	if err := json.Unmarshal(payload, &dash); err != nil {
		return nil, false, fmt.Errorf("decode dashboard cache: %w", err)
	}
	return &dash, true, nil
}

func (c *redisStockCache) SetDashboard(ctx context.Context, dash *domain.StockDashboard) error {
	payload, err := json.Marshal(dash)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

type recordsEnvelope struct {
	Records []domain.StockRecord `json:"records"`
	Total   int                  `json:"total"`
}

func (c *redisStockCache) GetRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, bool, error) {
	payload, err := c.client.Get(ctx, buildRecordsKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	var env recordsEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, 0, false, fmt.Errorf("decode records cache: %w", err)
	}
	return env.Records, env.Total, true, nil
}

func (c *redisStockCache) SetRecords(ctx context.Context, filter domain.StockFilter, records []domain.StockRecord, total int) error {
	payload, err := json.Marshal(recordsEnvelope{Records: records, Total: total})
	if err != nil {
		return fmt.Errorf("encode records cache: %w", err)
	}
	if err := c.client.Set(ctx, buildRecordsKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisStockCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	pattern := "warehouse_flow:*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (n *noopStockCache) GetDashboard(ctx context.Context) (*domain.StockDashboard, bool, error) {
	return nil, false, nil
}

func (n *noopStockCache) SetDashboard(ctx context.Context, dash *domain.StockDashboard) error {
	return nil
}

func (n *noopStockCache) GetRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, bool, error) {
	return nil, 0, false, nil
}

func (n *noopStockCache) SetRecords(ctx context.Context, filter domain.StockFilter, records []domain.StockRecord, total int) error {
	return nil
}

func (n *noopStockCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRecordsKey(filter domain.StockFilter) string {
	return fmt.Sprintf("%s:%s", stockRecordsKeyPrefix, filterHash(filter))
}

func filterHash(filter domain.StockFilter) string {
	var parts []string

	if len(filter.Locations) > 0 {
		locs := append([]string(nil), filter.Locations...)
		for i := range locs {
			locs[i] = strings.ToLower(strings.TrimSpace(locs[i]))
		}
		sort.Strings(locs)
		parts = append(parts, "locations="+strings.Join(locs, ","))
	}
	if !filter.From.IsZero() {
		parts = append(parts, "from="+filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		parts = append(parts, "to="+filter.To.Format("2006-01-02"))
	}
	if filter.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page_size=%d", filter.PageSize))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
