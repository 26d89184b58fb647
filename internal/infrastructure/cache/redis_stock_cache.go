package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

var _ inventory.StockCache = (*RedisStockCache)(nil)

const stockSummaryPrefix = "inventory:stock-summary:"

// RedisStockCache guarda el resumen de stock por bodega de cada ítem como JSON con TTL.
// Es solo una proyección: el libro sigue siendo la fuente de verdad.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockCache construye la caché. ttl <= 0 usa 5 minutos.
func NewRedisStockCache(client *redis.Client, ttl time.Duration) *RedisStockCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStockCache{client: client, ttl: ttl}
}

func stockSummaryKey(itemID string) string {
	return stockSummaryPrefix + itemID
}

// GetSummary devuelve (resumen, true) si hay entrada; (nil, false) si no.
func (c *RedisStockCache) GetSummary(ctx context.Context, itemID string) ([]entity.WarehouseStock, bool, error) {
	raw, err := c.client.Get(ctx, stockSummaryKey(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get stock summary: %w", err)
	}
	var summary []entity.WarehouseStock
	if err := json.Unmarshal(raw, &summary); err != nil {
		// Entrada corrupta: se trata como miss y se descarta.
		_ = c.client.Del(ctx, stockSummaryKey(itemID)).Err()
		return nil, false, nil
	}
	return summary, true, nil
}

// SetSummary guarda el resumen con el TTL configurado.
func (c *RedisStockCache) SetSummary(ctx context.Context, itemID string, summary []entity.WarehouseStock) error {
	if summary == nil {
		summary = []entity.WarehouseStock{}
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode stock summary: %w", err)
	}
	if err := c.client.Set(ctx, stockSummaryKey(itemID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stock summary: %w", err)
	}
	return nil
}

// Invalidate borra los resúmenes de los ítems indicados.
func (c *RedisStockCache) Invalidate(ctx context.Context, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, stockSummaryKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del stock summary: %w", err)
	}
	return nil
}
