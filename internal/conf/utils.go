package conf

import (
	"fmt"
	"strconv"
	"time"
)

// ParseRetentionPeriod parses a retention period such as "48h", "30d",
// "2w", "6m" or "1y". A plain integer is taken as hours. Months count 30
// days and years 365 days. "0" disables retention.
func ParseRetentionPeriod(retention string) (time.Duration, error) {
	if retention == "" {
		return 0, fmt.Errorf("retention period cannot be empty")
	}

	lastChar := retention[len(retention)-1]
	if lastChar >= '0' && lastChar <= '9' {
		hours, err := strconv.Atoi(retention)
		if err != nil || hours < 0 {
			return 0, fmt.Errorf("invalid retention period format: %s", retention)
		}
		return time.Duration(hours) * time.Hour, nil
	}

	number, err := strconv.Atoi(retention[:len(retention)-1])
	if err != nil || number < 0 {
		return 0, fmt.Errorf("invalid retention period format: %s", retention)
	}

	day := 24 * time.Hour
	switch lastChar {
	case 'h':
		return time.Duration(number) * time.Hour, nil
	case 'd':
		return time.Duration(number) * day, nil
	case 'w':
		return time.Duration(number) * 7 * day, nil
	case 'm':
		return time.Duration(number) * 30 * day, nil
	case 'y':
		return time.Duration(number) * 365 * day, nil
	default:
		return 0, fmt.Errorf("invalid suffix for retention period: %c", lastChar)
	}
}
