package config

import "hash/fnv"

// hashBytes fingerprints a raw config file so the watcher can tell a real
// edit from a touch or an editor rewrite. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
