package elasticswap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayBucket(t *testing.T) {
	exchange := "0xabc"

	t.Run("timestamp falls inside its bucket", func(t *testing.T) {
		ts := int64(5*86400 + 12345)
		id, start := dayBucket(exchange, ts)
		assert.Equal(t, "0xabc-5", id)
		assert.Equal(t, int64(5*86400), start)
		assert.LessOrEqual(t, start, ts)
		assert.Less(t, ts, start+86400)
	})

	t.Run("bucket boundaries", func(t *testing.T) {
		id, start := dayBucket(exchange, 86400)
		assert.Equal(t, "0xabc-1", id)
		assert.Equal(t, int64(86400), start)

		id, _ = dayBucket(exchange, 86399)
		assert.Equal(t, "0xabc-0", id)
	})

	t.Run("same day maps to same bucket", func(t *testing.T) {
		idA, _ := dayBucket(exchange, 5*86400)
		idB, _ := dayBucket(exchange, 5*86400+86399)
		assert.Equal(t, idA, idB)
	})

	t.Run("different exchanges never collide", func(t *testing.T) {
		idA, _ := dayBucket("0xaaa", 86400)
		idB, _ := dayBucket("0xbbb", 86400)
		assert.NotEqual(t, idA, idB)
	})
}

func TestHourBucket(t *testing.T) {
	exchange := "0xabc"

	t.Run("timestamp falls inside its bucket", func(t *testing.T) {
		ts := int64(100*3600 + 59)
		id, start := hourBucket(exchange, ts)
		assert.Equal(t, "0xabc-100", id)
		assert.Equal(t, int64(100*3600), start)
		assert.LessOrEqual(t, start, ts)
		assert.Less(t, ts, start+3600)
	})

	t.Run("same day different hours split hour buckets", func(t *testing.T) {
		dayA, _ := dayBucket(exchange, 5*86400+100)
		dayB, _ := dayBucket(exchange, 5*86400+7200)
		assert.Equal(t, dayA, dayB)

		hourA, _ := hourBucket(exchange, 5*86400+100)
		hourB, _ := hourBucket(exchange, 5*86400+7200)
		assert.NotEqual(t, hourA, hourB)
	})

	t.Run("id format is stable", func(t *testing.T) {
		ts := int64(7 * 3600)
		id, _ := hourBucket(exchange, ts)
		assert.Equal(t, fmt.Sprintf("%s-%d", exchange, ts/3600), id)
	})
}
