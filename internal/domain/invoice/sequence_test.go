package invoice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/invoicing/internal/domain/invoice"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/testutil"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertInto(store invoice.Repository) func(ctx context.Context, number string) error {
	return func(ctx context.Context, number string) error {
		return store.Create(ctx, &invoice.Invoice{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			InvoiceNumber: number,
			Status:        types.InvoiceStatusDraft,
		})
	}
}

func TestAllocator_SequentialWithinMonth(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryInvoiceStore()
	clock := testutil.NewClock(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC))
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{}, clock.Now)

	for _, want := range []string{"INV-202401-0001", "INV-202401-0002", "INV-202401-0003"} {
		got, err := alloc.Allocate(ctx, insertInto(store))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAllocator_NewMonthResets(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryInvoiceStore()
	clock := testutil.NewClock(time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC))
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{}, clock.Now)

	first, err := alloc.Allocate(ctx, insertInto(store))
	require.NoError(t, err)
	assert.Equal(t, "INV-202401-0001", first)

	clock.Advance(2 * time.Minute)
	second, err := alloc.Allocate(ctx, insertInto(store))
	require.NoError(t, err)
	assert.Equal(t, "INV-202402-0001", second)
}

func TestAllocator_ContinuesFromStoredMax(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryInvoiceStore()
	require.NoError(t, insertInto(store)(ctx, "INV-202401-0041"))
	require.NoError(t, insertInto(store)(ctx, "INV-202312-0900"))

	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{}, func() time.Time {
		return time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
	})

	got, err := alloc.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-202401-0042", got)
}

func TestAllocator_CustomPrefix(t *testing.T) {
	store := testutil.NewInMemoryInvoiceStore()
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{Prefix: "ACME"}, func() time.Time {
		return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	})

	got, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ACME-202503-0001", got)
}

func TestAllocator_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCollidingInvoiceStore(3)
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{MaxAttempts: 5}, func() time.Time {
		return time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	})

	var retries []string
	alloc.OnRetry = func(attempt int, number string, err error) {
		retries = append(retries, number)
	}

	got, err := alloc.Allocate(ctx, insertInto(store))
	require.NoError(t, err)
	// three rivals took 0001..0003 first
	assert.Equal(t, "INV-202401-0004", got)
	assert.Equal(t, []string{"INV-202401-0001", "INV-202401-0002", "INV-202401-0003"}, retries)
	assert.Equal(t, 4, store.Inserts)
}

func TestAllocator_Exhausted(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCollidingInvoiceStore(10)
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{MaxAttempts: 5}, nil)

	_, err := alloc.Allocate(ctx, insertInto(store))
	require.Error(t, err)
	assert.True(t, errors.Is(err, invoice.ErrAllocationExhausted))
	assert.True(t, ierr.IsUnavailable(err))
	assert.Equal(t, 5, store.Inserts)
	assert.Equal(t, 5, store.Remaining())
}

func TestAllocator_OtherErrorsAreNotRetried(t *testing.T) {
	store := testutil.NewInMemoryInvoiceStore()
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{}, nil)

	calls := 0
	_, err := alloc.Allocate(context.Background(), func(ctx context.Context, number string) error {
		calls++
		return ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, errors.Is(err, invoice.ErrAllocationExhausted))
	assert.True(t, errors.Is(err, ierr.ErrDatabase))
}

func TestAllocator_PartitionFull(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryInvoiceStore()
	require.NoError(t, insertInto(store)(ctx, "INV-202401-9999"))

	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{}, func() time.Time {
		return time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	})
	_, err := alloc.Next(ctx)
	assert.True(t, errors.Is(err, invoice.ErrAllocationExhausted))
}

func TestAllocator_ConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewInMemoryInvoiceStore()
	alloc := invoice.NewNumberAllocator(store, invoice.AllocatorConfig{MaxAttempts: 20}, func() time.Time {
		return time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	})

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Allocate(ctx, insertInto(store))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, numbers[n], "duplicate number %s", n)
			numbers[n] = true
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, writers)
	count, err := store.Count(ctx, &types.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}

func TestParseSequence(t *testing.T) {
	n, err := invoice.ParseSequence("INV-202401-0042", "INV-202401-")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = invoice.ParseSequence("INV-202401-00x2", "INV-202401-")
	assert.Error(t, err)

	_, err = invoice.ParseSequence("INV-202402-0001", "INV-202401-")
	assert.Error(t, err)
}
