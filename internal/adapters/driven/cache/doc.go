// Package cache groups the driven.CacheBackend adapters: an in-process
// memory store and a Redis client. Both store opaque bytes with a TTL;
// result-set encoding lives in the retrieval service.
package cache
