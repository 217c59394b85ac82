// Package idgen produces document identifiers.
package idgen

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Generator returns a new identifier on every call.
type Generator func() string

// Generate returns an identifier of the form "<time>-<a>-<b>", where time
// is the current Unix time in milliseconds and a, b are drawn uniformly
// from [0, 1000), all three in base 36.
//
// Ids sort by creation time at millisecond granularity. Only 10^6 values
// exist per millisecond, so bulk inserts will see occasional collisions;
// use UUID when ids must be distinct.
func Generate() string {
	return generateAt(time.Now())
}

func generateAt(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" +
		strconv.FormatInt(int64(rand.IntN(1000)), 36) + "-" +
		strconv.FormatInt(int64(rand.IntN(1000)), 36)
}

// UUID returns a random (version 4) UUID string. Use it in place of
// Generate when ids must not collide under heavy concurrent inserts.
func UUID() string {
	return uuid.New().String()
}
