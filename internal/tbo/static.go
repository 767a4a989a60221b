/**
 * @description
 * TBO static reference data: country-scoped destination (city) lists, and
 * resolution of a human destination name to the supplier's numeric location id.
 *
 * @notes
 * - The static-data API authenticates with its own UserName/Password pair on
 *   every request, separate from the dynamic API's TokenId.
 * - Destination records are inconsistent about which field carries the display
 *   name (CityName, Name, Destination) and the id (Id, Code, DestinationId);
 *   normalization checks the candidate fields in that order.
 * - Country lists change rarely, so the destination list is cached in Redis
 *   per country code.
 */

package tbo

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	destinationCacheTTL = 12 * time.Hour
)

func destinationCacheKey(countryCode string) string {
	return "tbo:destinations:" + countryCode
}

type destinationWire struct {
	CityName      string      `json:"CityName"`
	Name          string      `json:"Name"`
	Destination   string      `json:"Destination"`
	ID            json.Number `json:"Id"`
	Code          json.Number `json:"Code"`
	DestinationID json.Number `json:"DestinationId"`
}

// displayName picks the first populated name field, in the order the supplier
// has been observed to use them.
func (w destinationWire) displayName() string {
	for _, candidate := range []string{w.CityName, w.Name, w.Destination} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func (w destinationWire) id() int {
	for _, candidate := range []json.Number{w.ID, w.Code, w.DestinationID} {
		if candidate == "" {
			continue
		}
		if v, err := candidate.Int64(); err == nil && v > 0 {
			return int(v)
		}
	}
	return 0
}

type cityListResponseWire struct {
	Status int               `json:"Status"`
	Cities []destinationWire `json:"Cities"`
	Error  errorWire         `json:"Error"`
}

// DestinationList fetches the supplier's destination records for one country,
// normalized to fixed Destination values. Results are cached.
func (c *Client) DestinationList(ctx context.Context, countryCode string) ([]Destination, error) {
	if c.Cache != nil {
		if cached, err := c.Cache.Get(ctx, destinationCacheKey(countryCode)).Result(); err == nil {
			var out []Destination
			if json.Unmarshal([]byte(cached), &out) == nil {
				return out, nil
			}
		} else if err != nil && err != redis.Nil {
			// Fall through to a live call on cache trouble.
		}
	}

	var out []Destination
	err := c.withRetry(ctx, "HotelCityList", func() error {
		query := url.Values{}
		query.Set("UserName", c.StaticUserName)
		query.Set("Password", c.StaticPassword)
		query.Set("CountryCode", countryCode)

		raw, err := c.getJSON(ctx, "HotelCityList", c.StaticURL+"/HotelCityList", query)
		if err != nil {
			return err
		}

		var resp cityListResponseWire
		if err := json.Unmarshal(raw, &resp); err != nil {
			return newSupplierError("HotelCityList", 0, "malformed city list response: "+truncate(raw, 200))
		}
		if resp.Status != 1 {
			return newSupplierError("HotelCityList", resp.Error.ErrorCode, resp.Error.ErrorMessage)
		}

		out = out[:0]
		for _, w := range resp.Cities {
			name := w.displayName()
			id := w.id()
			if name == "" || id == 0 {
				continue
			}
			out = append(out, Destination{ID: id, Name: name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if data, err := json.Marshal(out); err == nil {
			_ = c.Cache.Set(ctx, destinationCacheKey(countryCode), data, destinationCacheTTL).Err()
		}
	}
	return out, nil
}

// ResolveDestination maps a destination display name and ISO country code to
// the supplier's location id. Matching is case-sensitive substring containment
// against each normalized display name; the first match wins, no scoring.
// A miss is ErrDestinationNotFound, which is fatal and non-retryable.
func (c *Client) ResolveDestination(ctx context.Context, name, countryCode string) (Destination, error) {
	destinations, err := c.DestinationList(ctx, countryCode)
	if err != nil {
		return Destination{}, err
	}
	for _, d := range destinations {
		if strings.Contains(d.Name, name) {
			return d, nil
		}
	}
	return Destination{}, ErrDestinationNotFound
}
