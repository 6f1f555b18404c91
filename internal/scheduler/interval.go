package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// ParseCandleInterval parses a broker candle interval. A bare number is
// minutes ("1", "5", "15"); "15m", "1h" and "1d" are also accepted.
// Returns (0, false) on invalid input.
func ParseCandleInterval(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(interval); err == nil {
		if n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Minute, true
	}
	unit := interval[len(interval)-1]
	numStr := strings.TrimSpace(interval[:len(interval)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// BrokerMinutes renders d as the broker's minute interval string.
func BrokerMinutes(d time.Duration) string {
	m := int(d / time.Minute)
	if m < 1 {
		m = 1
	}
	return strconv.Itoa(m)
}
