package rss

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnparseableDuration = errors.New("unparseable duration")

// ParseDuration accepts HH:MM:SS, MM:SS or a bare number of seconds and returns
// the total seconds. Any other shape, or a total past math.MaxInt32 seconds,
// yields ErrUnparseableDuration.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrUnparseableDuration
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, ErrUnparseableDuration
	}

	total := 0
	for _, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, ErrUnparseableDuration
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > math.MaxInt32 || total > (math.MaxInt32-n)/60 {
			return 0, ErrUnparseableDuration
		}
		total = total*60 + n
	}
	return total, nil
}
