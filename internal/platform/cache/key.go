package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Key derives a composite cache key from a logical name and a condition
// value. The condition is msgpack-encoded (field order follows the struct
// declaration, so encoding is deterministic for a given type) and hashed,
// keeping semantically distinct request shapes from colliding.
func Key(name string, condition any) (string, error) {
	if name == "" {
		return "", fmt.Errorf("logical name is required")
	}
	if condition == nil {
		return name, nil
	}
	data, err := msgpack.Marshal(condition)
	if err != nil {
		return "", fmt.Errorf("encode cache condition: %w", err)
	}
	return name + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
