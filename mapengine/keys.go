package mapengine

import "strings"

// MetaSeparator marks a store key as internal bookkeeping rather than
// the map's own data hash. Any name containing it is filtered out of
// every externally visible listing.
const MetaSeparator = ":__meta:"

const metaSeparator = MetaSeparator

func dataKey(name string) string { return "map:" + name }

func versionsKey(name string) string { return "map:" + name + metaSeparator + "versions" }

func timestampsKey(name string) string { return "map:" + name + metaSeparator + "timestamps" }

func timestampsSortedKey(name string) string {
	return "map:" + name + metaSeparator + "timestamps-sorted"
}

func lastBatchKey(name string) string {
	return "map:" + name + metaSeparator + "timestamps:last-batch"
}

func ttlConfigKey(name string) string { return "map:" + name + metaSeparator + "ttl-config" }

func accessTimeKey(name string) string { return "map:" + name + ":access-time" }

// isMetaName reports whether a fully-qualified store key name is internal
// bookkeeping and must be hidden from any name listing.
func isMetaName(name string) bool {
	return strings.Contains(name, metaSeparator)
}

// IsMetaName is isMetaName's exported counterpart, for collaborators
// outside this package that enumerate map names (e.g. Registry).
func IsMetaName(name string) bool {
	return isMetaName(name)
}
