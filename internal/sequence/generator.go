// Package sequence mints human readable, date-scoped identifiers such as
// SRV-20261019-0001 and JOB-2026-0042.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairdesk/internal/repository"
	apperrors "github.com/spec-kit/repairdesk/pkg/util/errorutil"
)

// Identifier prefixes in use.
const (
	PrefixServiceRequest = "SRV"
	PrefixJob            = "JOB"
)

// DefaultMaxAttempts bounds the insert retries for one identifier.
const DefaultMaxAttempts = 5

// Store reports the highest identifier already issued under a prefix.
// An empty string means none exists.
type Store interface {
	MaxIdentifier(ctx context.Context, prefix string) (string, error)
}

// InsertFunc persists the entity under the candidate id. It must return an error
// wrapping repository.ErrDuplicate when the id is already taken.
type InsertFunc func(ctx context.Context, id string) error

// Generator allocates identifiers with optimistic retry on duplicate keys.
type Generator struct {
	maxAttempts int
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGenerator builds a generator. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewGenerator(maxAttempts int, logger *zap.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{maxAttempts: maxAttempts, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// DayPartition formats t as YYYYMMDD in UTC.
func DayPartition(t time.Time) string {
	return t.UTC().Format("20060102")
}

// YearPartition formats t as YYYY in UTC.
func YearPartition(t time.Time) string {
	return t.UTC().Format("2006")
}

// Format builds "{PREFIX}-{partition}-{0001}".
func Format(prefix, partition string, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, partition, seq)
}

// Next allocates the next identifier for prefix+partition and hands it to insert.
// The returned id is the one insert accepted.
func (g *Generator) Next(ctx context.Context, store Store, prefix, partition string, insert InsertFunc) (string, error) {
	keyPrefix := prefix + "-" + partition + "-"

	lock := g.lockFor(keyPrefix)
	lock.Lock()
	defer lock.Unlock()

	last, err := store.MaxIdentifier(ctx, keyPrefix)
	if err != nil {
		return "", fmt.Errorf("read max identifier: %w", err)
	}
	base := parseSequence(last)

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := Format(prefix, partition, base+1+attempt)
		err := insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return "", err
		}
		g.logger.Warn("identifier collision, retrying",
			zap.String("id", id),
			zap.Int("attempt", attempt+1))
	}
	return "", apperrors.NewIdentifierExhausted(prefix, g.maxAttempts)
}

// lockFor serialises generation per key inside this process; other processes are
// handled by the duplicate-key retry.
func (g *Generator) lockFor(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[key]
	if !ok {
		l = &sync.Mutex{}
		g.locks[key] = l
	}
	return l
}

// Later reports whether identifier a carries a higher sequence than b under the same
// prefix. Suffixes widen past 9999, so a longer id is always later.
func Later(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func parseSequence(id string) int {
	if id == "" {
		return 0
	}
	idx := strings.LastIndex(id, "-")
	if idx == -1 {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
