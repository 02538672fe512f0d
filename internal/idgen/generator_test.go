package idgen

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &ULIDGenerator{}, g)

	g, err = New("uuid")
	require.NoError(t, err)
	assert.IsType(t, &UUIDGenerator{}, g)

	_, err = New("snowflake")
	assert.ErrorContains(t, err, "unsupported id generator")
}

func TestULIDMonotonicWithinMillisecond(t *testing.T) {
	g := NewULIDGenerator()
	fixed := time.UnixMilli(1700000000000)
	g.now = func() time.Time { return fixed }

	ids := make([]string, 100)
	for i := range ids {
		id, err := g.Generate()
		require.NoError(t, err)
		ids[i] = id
	}

	assert.True(t, sort.StringsAreSorted(ids))
	parsed, err := ulid.Parse(ids[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000000), parsed.Time())
}

func TestULIDUniqueUnderConcurrency(t *testing.T) {
	g := NewULIDGenerator()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id, err := g.Generate()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

func TestUUIDGenerator(t *testing.T) {
	id, err := NewUUIDGenerator().Generate()
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.EqualValues(t, 4, parsed.Version())
}
