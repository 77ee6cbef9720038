package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/impact-stories/internal/ratelimit"
	"github.com/princekumarofficial/impact-stories/internal/utils/response"
)

// ActionStories is the bucket shared by every mutating story route.
const ActionStories = "stories"

type RateLimitConfig struct {
	limiters map[string]*ratelimit.TokenBucket
}

// NewRateLimitConfig configures per-user buckets; storiesPerMinute applies to
// writes on stories and their media.
func NewRateLimitConfig(redisClient *redis.Client, storiesPerMinute int64) *RateLimitConfig {
	if storiesPerMinute <= 0 {
		storiesPerMinute = 20
	}
	return &RateLimitConfig{
		limiters: map[string]*ratelimit.TokenBucket{
			ActionStories: ratelimit.NewTokenBucket(redisClient, storiesPerMinute, storiesPerMinute),
		},
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(res.ResetAfter.Seconds())))
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Auth middleware must have run first
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Take(r.Context(), userID, action)
			if err != nil {
				slog.Error("Rate limit check failed", slog.String("action", action), slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			setRateLimitHeaders(w, res)
			if !res.Allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitStatus reports the caller's remaining quota for action without consuming it.
// @Summary Rate limit status
// @Tags rate-limit
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /rate-limit [get]
func (rlc *RateLimitConfig) RateLimitStatus(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
				errors.New("user not authenticated")))
			return
		}

		limiter, exists := rlc.limiters[action]
		if !exists {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(
				fmt.Errorf("no rate limit for action %q", action)))
			return
		}

		res, err := limiter.Peek(r.Context(), userID, action)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		setRateLimitHeaders(w, res)
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Rate limit status", map[string]interface{}{
			"action":           action,
			"limit":            res.Limit,
			"remaining":        res.Remaining,
			"reset_after_secs": int(res.ResetAfter.Seconds()),
		}))
	}
}
