package handlers

import (
	"context"
	"encoding/json"
	"time"

	"taskman/internal/config"
)

// TTL cache Redis untuk record get-by-id.
const cacheTTL = time.Hour

// cacheGet mengambil record dari Redis; false jika cache miss,
// Redis tidak tersedia, atau isi cache tidak bisa didecode.
func cacheGet(ctx context.Context, key string) (map[string]interface{}, bool) {
	if config.RedisClient == nil {
		return nil, false
	}
	cached, err := config.RedisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cached), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// cacheSet menyimpan record ke Redis; kegagalan cache tidak menggagalkan request.
func cacheSet(ctx context.Context, key string, doc interface{}) {
	if config.RedisClient == nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	config.RedisClient.SetEX(ctx, key, data, cacheTTL)
}

// cacheDel menghapus entry cache, dipakai setiap ada mutasi record.
func cacheDel(ctx context.Context, keys ...string) {
	if config.RedisClient == nil || len(keys) == 0 {
		return
	}
	config.RedisClient.Del(ctx, keys...)
}

func taskCacheKey(id string) string { return "task:" + id }
func userCacheKey(id string) string { return "user:" + id }
