package kafka

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONHandler decodes each message value into a fresh M.
func JSONHandler[M any](handle func(ctx context.Context, key []byte, m M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var m M
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		return handle(ctx, key, m)
	}
}
