// Package blacklist provides token revocation stores. A revoked token hash is
// kept only until the token would have expired on its own, so the set stays
// small regardless of traffic.
package blacklist

// redisKeyPrefix namespaces blacklist entries so they can share a Redis
// database with other keys.
const redisKeyPrefix = "auth:blacklist:"
