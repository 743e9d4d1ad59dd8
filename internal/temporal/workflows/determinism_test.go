package workflows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/oa-metasearch/internal/domain"
)

func TestSortedMapKeys(t *testing.T) {
	t.Run("returns keys in sorted order", func(t *testing.T) {
		m := map[domain.Source]int{domain.SourceNCBI: 3, domain.SourceArXiv: 1, domain.SourceDOAJ: 2}
		assert.Equal(t, []domain.Source{domain.SourceArXiv, domain.SourceDOAJ, domain.SourceNCBI}, SortedMapKeys(m))
	})

	t.Run("empty map returns empty slice", func(t *testing.T) {
		assert.Empty(t, SortedMapKeys(map[string]int{}))
	})
}

func TestDedupeRecords(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := domain.NewRecord(domain.SourceArXiv, "1", "first", at)
	dup := a
	dup.Title = "second"
	b := domain.NewRecord(domain.SourceDOAJ, "1", "other", at)

	seen := map[string]struct{}{}
	kept, dupes := DedupeRecords(seen, []domain.OARecord{a, dup, b})
	require.Len(t, kept, 2)
	assert.Equal(t, "first", kept[0].Title)
	assert.Equal(t, "doaj:1", kept[1].ID)
	assert.Equal(t, 1, dupes)

	kept, dupes = DedupeRecords(seen, []domain.OARecord{b})
	assert.Empty(t, kept)
	assert.Equal(t, 1, dupes)
}

func TestBatches(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]domain.OARecord, 5)
	for i := range records {
		records[i] = domain.NewRecord(domain.SourceArXiv, string(rune('a'+i)), "t", at)
	}

	batches := Batches(records, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, "arxiv:e", batches[2][0].ID)

	assert.Nil(t, Batches(nil, 2))
	assert.Nil(t, Batches(records, 0))
}
