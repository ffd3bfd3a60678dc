package activity

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// NormalizeEntries converts raw uploaded entries into records for userID.
// Entries without a domain or with a duration that does not round to a
// positive number of seconds are dropped.
func NormalizeEntries(userID string, raw []any, createdAt time.Time) []*Record {
	records := make([]*Record, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		domain := normalizeString(entry["domain"])
		duration := roundSeconds(toNumber(entry["duration"]))
		if domain == "" || duration <= 0 {
			continue
		}

		var startTime *string
		if s := normalizeString(entry["startTime"]); s != "" {
			startTime = &s
		}

		records = append(records, &Record{
			UserID:    userID,
			Domain:    domain,
			Duration:  duration,
			StartTime: startTime,
			CreatedAt: createdAt,
		})
	}
	return records
}

func normalizeString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// toNumber coerces a decoded JSON value the way a loose numeric field is
// usually read: numbers as is, numeric strings parsed, booleans as 0/1,
// anything else NaN.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case nil:
		return 0
	default:
		return math.NaN()
	}
}

// roundSeconds rounds half up. Values that are not finite or do not fit in
// an int64 become 0.
func roundSeconds(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0
	}
	return int64(math.Floor(f + 0.5))
}
