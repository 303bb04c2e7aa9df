package mapengine

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// ticksPerSecond is the number of 100-nanosecond ticks in one second,
// the unit used for the timestamp structures. It is an arbitrary but
// fixed epoch unit, chosen only for stable, sortable integer-as-text
// encoding; the engine never interprets it as wall clock against any
// particular calendar epoch other than the process's own time.Time
// zero value.
const ticksPerSecond = int64(time.Second / 100)

// nowTicks is the last-modified instant written on every Set: the
// integer count of 100ns ticks since time.Time's zero instant. The
// integer value doubles as the sorted-set score for timestamps-sorted,
// which tolerates the scale comfortably as a 64-bit float.
func nowTicks() int64 {
	now := time.Now()
	return now.Unix()*ticksPerSecond + int64(now.Nanosecond())/100 + unixEpochTicks
}

// unixEpochTicks is the tick count from time.Time's zero instant
// (January 1, year 1 UTC) to the Unix epoch.
const unixEpochTicks = int64(621355968000000000)

// encodeTicks renders a tick count as the decimal text stored in the
// timestamps hash and used as a sorted-set score.
func encodeTicks(ticks int64) string {
	return strconv.FormatInt(ticks, 10)
}

// decodeTicks parses the decimal text back to a tick count, surfaced as
// a codec-adjacent error so a corrupt or foreign value does not panic
// the sweeper that reads it.
func decodeTicks(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "mapengine: decode timestamp %q", s)
	}
	return n, nil
}

// ticksToScore and scoreToTicks convert between the tick integer and its
// float64 sorted-set score representation.
func ticksToScore(ticks int64) float64 { return float64(ticks) }

func scoreToTicks(score float64) int64 { return int64(score) }

// nowUnixSeconds is the access-time instant: whole seconds since the
// Unix epoch.
func nowUnixSeconds() int64 {
	return time.Now().Unix()
}

// formatSeconds renders a TTL as the fractional-seconds decimal text the
// ttl-config string key holds.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// parseSeconds parses the ttl-config string back into a Duration.
func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "mapengine: parse ttl seconds %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}
