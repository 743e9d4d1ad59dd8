package workflows

import (
	"sort"

	"github.com/helixir/oa-metasearch/internal/domain"
)

// SortedMapKeys returns the keys of a map sorted in ascending order.
// Workflow code that ranges over a map must iterate these instead so that
// replay sees the same order.
func SortedMapKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}

// DedupeRecords appends the records of in whose id is not yet in seen,
// keeping the first occurrence. It returns the kept records and the number
// of duplicates skipped.
func DedupeRecords(seen map[string]struct{}, in []domain.OARecord) ([]domain.OARecord, int) {
	kept := make([]domain.OARecord, 0, len(in))
	dupes := 0
	for _, r := range in {
		if _, ok := seen[r.ID]; ok {
			dupes++
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dupes
}

// Batches splits records into consecutive slices of at most size records.
func Batches(records []domain.OARecord, size int) [][]domain.OARecord {
	if size <= 0 || len(records) == 0 {
		return nil
	}
	out := make([][]domain.OARecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}
