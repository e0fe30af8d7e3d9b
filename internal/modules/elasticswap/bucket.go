package elasticswap

import "fmt"

const (
	daySeconds  = 86400
	hourSeconds = 3600
)

// dayBucket derives the canonical day bucket for an exchange and timestamp:
// the bucket id "{exchange}-{dayIndex}" and the bucket's start timestamp.
func dayBucket(exchange string, timestamp int64) (string, int64) {
	index := timestamp / daySeconds
	return fmt.Sprintf("%s-%d", exchange, index), index * daySeconds
}

// hourBucket is the hourly analogue of dayBucket.
func hourBucket(exchange string, timestamp int64) (string, int64) {
	index := timestamp / hourSeconds
	return fmt.Sprintf("%s-%d", exchange, index), index * hourSeconds
}
