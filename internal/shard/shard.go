package shard

import (
	"hash/fnv"
)

// Index maps a store name to the position of the worker that owns it.
// It returns -1 when there are no workers to choose from.
//
// The mapping is FNV-1a over the raw name bytes, reduced modulo n. The same
// name always lands on the same position for a fixed n, which is what keeps
// every command for a store on one worker for the lifetime of the cluster.
func Index(storeName string, n int) int {
	if n <= 0 {
		return -1
	}
	return int(Hash(storeName) % uint32(n))
}

// Hash returns the 32-bit FNV-1a digest of key.
func Hash(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Distribution counts how many of names land on each of n positions.
// The master uses it to report how many placed stores each worker holds.
func Distribution(names []string, n int) []int {
	if n <= 0 {
		return nil
	}
	counts := make([]int, n)
	for _, name := range names {
		counts[Index(name, n)]++
	}
	return counts
}
