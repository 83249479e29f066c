package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/photoflare/galleria/internal/pkg/cache"
	"github.com/photoflare/galleria/internal/pkg/database"
)

const (
	photoDownloadsKey   = "photo:counters:downloads"
	webhookDeadKey      = "webhooks:counters:dead"
	rateLimitTrippedKey = "rateguard:counters:tripped"
)

// AddPhotoDownload increments the pending download counter for a photo in Redis
func AddPhotoDownload(photoID uint) error {
	ctx := context.Background()
	field := strconv.FormatUint(uint64(photoID), 10)
	return cache.GetClient().HIncrBy(ctx, photoDownloadsKey, field, 1).Err()
}

// AddWebhookDeadEvent increments the dead-letter alert counter. Monitoring
// alerts fire on this value; money state never lives here.
func AddWebhookDeadEvent() {
	ctx := context.Background()
	_ = cache.GetClient().Incr(ctx, webhookDeadKey).Err()
}

// AddRateLimitTripped increments the abuse-guard trip counter
func AddRateLimitTripped() {
	ctx := context.Background()
	_ = cache.GetClient().Incr(ctx, rateLimitTrippedKey).Err()
}

// FlushAll flushes pending download counters to the database
func FlushAll() error {
	return flushHashToTable(photoDownloadsKey, "photos", "download_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched
// increments to the target table. Uses RENAME to a temporary key for atomic
// drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	defer rdb.Del(ctx, tmpKey)

	fields, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	db := database.GetDB()
	for field, raw := range fields {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		delta, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || delta == 0 {
			continue
		}
		query := fmt.Sprintf("UPDATE %s SET %s = %s + ? WHERE id = ?", table, column, column)
		if err := db.Exec(query, delta, id).Error; err != nil {
			return err
		}
	}
	return nil
}

// StartFlusher flushes pending counters on a fixed interval until the stop
// channel closes.
func StartFlusher(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				_ = FlushAll()
			}
		}
	}()
}
