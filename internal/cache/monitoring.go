package cache

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/impact-stories/internal/utils/response"
)

// CacheStats represents cache performance statistics
type CacheStats struct {
	RedisConnected bool              `json:"redis_connected"`
	RedisInfo      map[string]string `json:"redis_info"`
	CacheKeys      []string          `json:"cache_keys_sample"`
	KeyCount       int               `json:"total_keys"`
}

// GetCacheStats returns cache performance statistics
// @Summary Cache statistics
// @Tags cache
// @Produce json
// @Success 200 {object} response.Response
// @Router /cache/stats [get]
func GetCacheStats(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		stats := CacheStats{
			RedisConnected: true,
			RedisInfo:      make(map[string]string),
		}

		// Test Redis connection
		_, err := redisClient.Ping(ctx).Result()
		if err != nil {
			stats.RedisConnected = false
			response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
			return
		}

		// Get Redis INFO
		infoResult := redisClient.Info(ctx, "memory", "stats")
		if infoResult.Err() == nil {
			stats.RedisInfo["info"] = "available"
		}

		// Get cache keys (sample)
		keys := redisClient.Keys(ctx, "story:*")
		if keys.Err() == nil {
			stats.CacheKeys = keys.Val()
			if len(stats.CacheKeys) > 10 {
				stats.CacheKeys = stats.CacheKeys[:10] // Show only first 10
			}
		}

		// Get total key count
		dbSize := redisClient.DBSize(ctx)
		if dbSize.Err() == nil {
			stats.KeyCount = int(dbSize.Val())
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache stats retrieved", stats))
	}
}

// ClearCache endpoint for administrative purposes
// @Summary Clear cached entries
// @Tags cache
// @Produce json
// @Param type query string false "stories, programs, beneficiaries or all"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /cache [delete]
func ClearCache(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var pattern string
		switch r.URL.Query().Get("type") {
		case "programs":
			pattern = "program:*"
		case "beneficiaries":
			pattern = "beneficiary:*"
		case "all":
			pattern = "*"
		default:
			pattern = "story:*"
		}

		// Delete matching keys
		keys := redisClient.Keys(ctx, pattern)
		if keys.Err() != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(keys.Err()))
			return
		}

		if len(keys.Val()) == 0 {
			result := map[string]interface{}{
				"pattern":      pattern,
				"deleted_keys": 0,
				"message":      "No keys found matching pattern",
			}
			response.WriteJSON(w, http.StatusOK, response.RequestOK("No cache keys to clear", result))
			return
		}

		deleted := redisClient.Del(ctx, keys.Val()...)
		if deleted.Err() != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(deleted.Err()))
			return
		}

		result := map[string]interface{}{
			"pattern":      pattern,
			"deleted_keys": deleted.Val(),
			"keys_sample":  keys.Val()[:min(len(keys.Val()), 5)], // Show first 5 deleted keys
		}
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Cache cleared successfully", result))
	}
}
