// Package cache provides an explicit TTL cache with a scheduled
// background sweep, used for short-lived signed URLs. The cache is
// dependency-injected into its callers; eviction happens in one place
// (the sweep) rather than inline at read sites.
package cache
