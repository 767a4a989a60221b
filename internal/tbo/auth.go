/**
 * @description
 * TBO Authenticate call. The returned TokenId is a bearer credential attached to
 * every subsequent supplier request.
 *
 * @notes
 * - Tokens are valid for about an hour supplier-side. They are cached in Redis
 *   slightly shorter than that so a token never expires mid-pipeline.
 * - The cache is injected, not process-global: tests point it at miniredis and
 *   control time themselves.
 */

package tbo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenCacheKey = "tbo:token"
	tokenCacheTTL = 55 * time.Minute
)

type authRequestWire struct {
	ClientID  string `json:"ClientId"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
	EndUserIP string `json:"EndUserIp"`
}

type authResponseWire struct {
	Status  int       `json:"Status"`
	TokenID string    `json:"TokenId"`
	Error   errorWire `json:"Error"`
}

// Authenticate returns a supplier TokenId, from cache when possible.
// Transport errors are retried with bounded backoff.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c.Cache != nil {
		if token, err := c.Cache.Get(ctx, tokenCacheKey).Result(); err == nil && token != "" {
			return token, nil
		} else if err != nil && err != redis.Nil {
			// Cache trouble is not fatal; fall through to a live auth call.
		}
	}

	var token string
	err := c.withRetry(ctx, "Authenticate", func() error {
		raw, err := c.postJSON(ctx, "Authenticate", c.AuthURL, authRequestWire{
			ClientID:  c.ClientID,
			UserName:  c.UserName,
			Password:  c.Password,
			EndUserIP: c.EndUserIP,
		})
		if err != nil {
			return err
		}

		var resp authResponseWire
		if err := json.Unmarshal(raw, &resp); err != nil {
			return newSupplierError("Authenticate", 0, "malformed auth response: "+truncate(raw, 200))
		}
		if resp.Status != 1 || resp.TokenID == "" {
			return newSupplierError("Authenticate", resp.Error.ErrorCode, resp.Error.ErrorMessage)
		}
		token = resp.TokenID
		return nil
	})
	if err != nil {
		return "", err
	}

	if c.Cache != nil {
		_ = c.Cache.Set(ctx, tokenCacheKey, token, tokenCacheTTL).Err()
	}
	return token, nil
}
