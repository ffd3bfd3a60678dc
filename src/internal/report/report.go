// Package report summarizes stored activity for the tracker's stats command.
package report

import (
	"fmt"
	"math"
	"sort"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/models"
)

// TopDomains sums durations per domain and returns the n largest, each with
// its share of the overall total.
func TopDomains(logs []clients.RemoteLog, n int) []models.DomainTotal {
	sums := make(map[string]float64)
	var total float64
	for _, l := range logs {
		if l.Domain == "" || l.Duration <= 0 {
			continue
		}
		sums[l.Domain] += l.Duration
		total += l.Duration
	}

	out := make([]models.DomainTotal, 0, len(sums))
	for domain, seconds := range sums {
		out = append(out, models.DomainTotal{
			Domain:  domain,
			Seconds: int64(math.Round(seconds)),
			Percent: int(math.Min(100, math.Round(seconds/total*100))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Domain < out[j].Domain
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FormatDuration renders whole hours above one hour and minutes otherwise.
func FormatDuration(seconds int64) string {
	if seconds > 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", int64(math.Round(float64(seconds)/60)))
}
