package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

type memoryStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newMemoryStore(seed ...string) *memoryStore {
	s := &memoryStore{ids: make(map[string]struct{})}
	for _, id := range seed {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *memoryStore) MaxIdentifier(_ context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := ""
	for id := range s.ids {
		if strings.HasPrefix(id, prefix) && Later(id, max) {
			max = id
		}
	}
	return max, nil
}

func (s *memoryStore) insert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return fmt.Errorf("insert %s: %w", id, repository.ErrDuplicate)
	}
	s.ids[id] = struct{}{}
	return nil
}

func TestFormatAndPartitions(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "SRV-20260309-0001", Format(PrefixServiceRequest, DayPartition(at), 1))
	assert.Equal(t, "JOB-2026-0042", Format(PrefixJob, YearPartition(at), 42))
}

func TestNextIncrementsFromMax(t *testing.T) {
	store := newMemoryStore("SRV-20260309-0007", "SRV-20260308-0099")
	gen := NewGenerator(5, nil)

	id, err := gen.Next(context.Background(), store, PrefixServiceRequest, "20260309", store.insert)
	require.NoError(t, err)
	assert.Equal(t, "SRV-20260309-0008", id)
}

func TestNextStartsAtOneForNewPartition(t *testing.T) {
	store := newMemoryStore("SRV-20260308-0099")
	gen := NewGenerator(5, nil)

	id, err := gen.Next(context.Background(), store, PrefixServiceRequest, "20260309", store.insert)
	require.NoError(t, err)
	assert.Equal(t, "SRV-20260309-0001", id)
}

func TestNextRetriesOnDuplicate(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator(5, nil)

	// Another writer already holds 0001 and 0002 without being visible to MaxIdentifier.
	taken := map[string]bool{"SRV-20260309-0001": true, "SRV-20260309-0002": true}
	var tried []string
	insert := func(ctx context.Context, id string) error {
		tried = append(tried, id)
		if taken[id] {
			return repository.ErrDuplicate
		}
		return store.insert(ctx, id)
	}

	id, err := gen.Next(context.Background(), store, PrefixServiceRequest, "20260309", insert)
	require.NoError(t, err)
	assert.Equal(t, "SRV-20260309-0003", id)
	assert.Equal(t, []string{"SRV-20260309-0001", "SRV-20260309-0002", "SRV-20260309-0003"}, tried)
}

func TestNextExhaustsAfterMaxAttempts(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator(5, nil)

	calls := 0
	insert := func(context.Context, string) error {
		calls++
		return repository.ErrDuplicate
	}

	_, err := gen.Next(context.Background(), store, PrefixServiceRequest, "20260309", insert)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIdentifierExhausted))
	assert.Equal(t, 5, calls)
}

func TestNextStopsOnOtherErrors(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator(5, nil)
	boom := errors.New("connection reset")

	calls := 0
	_, err := gen.Next(context.Background(), store, PrefixJob, "2026", func(context.Context, string) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestNextConcurrentIdentifiersAreUnique(t *testing.T) {
	store := newMemoryStore()
	gen := NewGenerator(5, nil)
	partition := DayPartition(time.Now())
	pattern := regexp.MustCompile(`^SRV-\d{8}-\d{4}$`)

	const n = 1000
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = gen.Next(context.Background(), store, PrefixServiceRequest, partition, store.insert)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Regexp(t, pattern, ids[i])
		seen[ids[i]] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestNextKeepsCountingPastFourDigits(t *testing.T) {
	store := newMemoryStore("SRV-20261019-9998", "SRV-20261019-9999")
	gen := NewGenerator(5, nil)

	for _, want := range []string{"SRV-20261019-10000", "SRV-20261019-10001", "SRV-20261019-10002"} {
		id, err := gen.Next(context.Background(), store, PrefixServiceRequest, "20261019", store.insert)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestLaterOrdersByNumericSuffix(t *testing.T) {
	assert.True(t, Later("SRV-20261019-10000", "SRV-20261019-9999"))
	assert.True(t, Later("SRV-20261019-0002", "SRV-20261019-0001"))
	assert.False(t, Later("SRV-20261019-0001", "SRV-20261019-0001"))
	assert.True(t, Later("JOB-2026-0001", ""))
}
