package ecs

import (
	"cmp"
	"slices"
	"sort"
)

// Component rows are kept in parallel slices sorted by key. Lookups are a
// binary search, inserts shift the tail. This trades O(n) insertion for
// contiguous iteration and a trivial on-disk layout.

// UpperBound returns the index of the first key greater than k.
func UpperBound[K cmp.Ordered](keys []K, k K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > k })
}

// IndexOf returns the position of k in the sorted keys, or -1.
func IndexOf[K cmp.Ordered](keys []K, k K) int {
	i := UpperBound(keys, k) - 1
	if i >= 0 && keys[i] == k {
		return i
	}
	return -1
}

func Contains[K cmp.Ordered](keys []K, k K) bool {
	return IndexOf(keys, k) >= 0
}

// InsertAt inserts v at index i, shifting the tail right.
func InsertAt[T any](s []T, i int, v T) []T {
	return slices.Insert(s, i, v)
}

// InsertSorted inserts k into the sorted keys at its upper-bound position
// and returns the new slice together with that position.
func InsertSorted[K cmp.Ordered](keys []K, k K) ([]K, int) {
	pos := UpperBound(keys, k)
	return InsertAt(keys, pos, k), pos
}

// InsertUnique behaves like InsertSorted but leaves keys unchanged when k
// is already present.
func InsertUnique[K cmp.Ordered](keys []K, k K) []K {
	pos := UpperBound(keys, k)
	if pos > 0 && keys[pos-1] == k {
		return keys
	}
	return InsertAt(keys, pos, k)
}

// RemoveAt deletes index i keeping the order of the remaining elements.
func RemoveAt[T any](s []T, i int) []T {
	return slices.Delete(s, i, i+1)
}

// RemoveSorted deletes k from the sorted keys if present.
func RemoveSorted[K cmp.Ordered](keys []K, k K) []K {
	if i := IndexOf(keys, k); i >= 0 {
		return RemoveAt(keys, i)
	}
	return keys
}

// DataIdxs resolves every id to its index in the sorted ids. Fails with
// ErrNotFound on the first unknown id.
func DataIdxs(ids, query []EntityID) ([]int, error) {
	idxs := make([]int, len(query))
	for i, id := range query {
		idx := IndexOf(ids, id)
		if idx < 0 {
			return nil, notFound(id)
		}
		idxs[i] = idx
	}
	return idxs, nil
}

// IsStrictlySorted reports whether keys are ascending without duplicates.
func IsStrictlySorted[K cmp.Ordered](keys []K) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			return false
		}
	}
	return true
}

// SortedUnique returns a sorted copy of keys with duplicates removed.
func SortedUnique[K cmp.Ordered](keys []K) []K {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Gather copies src[idxs[i]] into a new slice.
func Gather[T any](src []T, idxs []int) []T {
	out := make([]T, len(idxs))
	for i, idx := range idxs {
		out[i] = src[idx]
	}
	return out
}
