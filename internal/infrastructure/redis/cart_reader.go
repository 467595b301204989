package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/lumimart/checkout/internal/domain/cart"
)

const cartTTL = 30 * 24 * time.Hour

// CartReader reads a user's cart out of a redis hash keyed by user ID. Each
// field is a product ID holding a JSON line with its selection flag; the cart
// front end owns the writes, checkout only consumes selected lines.
type CartReader struct {
	rdb *redis.Client
}

func NewCartReader(rdb *redis.Client) *CartReader {
	return &CartReader{rdb: rdb}
}

type cartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Selected  bool  `json:"selected"`
}

func cartKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (r *CartReader) ReadSelectedLines(ctx context.Context, userID int64) ([]domain.Line, error) {
	fields, err := r.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read cart for user %d: %w", userID, err)
	}

	var out []domain.Line
	for field, raw := range fields {
		var line cartLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("decode cart line %s for user %d: %w", field, userID, err)
		}
		if !line.Selected {
			continue
		}
		out = append(out, domain.Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return out, nil
}

// SetLine writes or replaces one cart line. Exposed for seeding and for the
// cart surface that shares this hash layout.
func (r *CartReader) SetLine(ctx context.Context, userID int64, line domain.Line, selected bool) error {
	raw, err := json.Marshal(cartLine{ProductID: line.ProductID, Quantity: line.Quantity, Selected: selected})
	if err != nil {
		return err
	}
	key := cartKey(userID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(line.ProductID, 10), raw)
	pipe.Expire(ctx, key, cartTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Clear drops the user's whole cart hash.
func (r *CartReader) Clear(ctx context.Context, userID int64) error {
	return r.rdb.Del(ctx, cartKey(userID)).Err()
}
