package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/invoicing/internal/errors"
)

const (
	DefaultNumberPrefix       = "INV"
	DefaultMaxAttempts        = 5
	sequenceDigits            = 4
	maxSequence               = 9999
	yearMonthLayout           = "200601"
	defaultRetryMaxElapsedCap = 5 * time.Second
)

// AllocatorConfig tunes the number allocator
type AllocatorConfig struct {
	// Prefix precedes the year-month partition, "INV" when empty
	Prefix string
	// MaxAttempts bounds allocate-and-insert rounds, 5 when not positive
	MaxAttempts int
	// InitialInterval and MaxInterval shape the exponential wait between
	// rounds. A zero InitialInterval retries immediately.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// NumberAllocator hands out invoice numbers of the form PREFIX-YYYYMM-NNNN.
// The sequence restarts at 0001 each month because the partition prefix changes.
type NumberAllocator struct {
	reader NumberReader
	cfg    AllocatorConfig
	clock  func() time.Time
	// OnRetry, when set, is called after every failed round that will be retried
	OnRetry func(attempt int, number string, err error)
}

// NewNumberAllocator creates an allocator reading from reader. clock defaults to time.Now.
func NewNumberAllocator(reader NumberReader, cfg AllocatorConfig, clock func() time.Time) *NumberAllocator {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultNumberPrefix
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if clock == nil {
		clock = time.Now
	}
	return &NumberAllocator{
		reader: reader,
		cfg:    cfg,
		clock:  clock,
	}
}

// PartitionPrefix returns "INV-YYYYMM-" for t in UTC
func (a *NumberAllocator) PartitionPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%s-", a.cfg.Prefix, t.UTC().Format(yearMonthLayout))
}

// Next reads the current maximum of this month's partition and returns the number after it
func (a *NumberAllocator) Next(ctx context.Context) (string, error) {
	prefix := a.PartitionPrefix(a.clock())

	last, err := a.reader.FindMaxInvoiceNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if last != nil {
		n, err := ParseSequence(*last, prefix)
		if err != nil {
			return "", err
		}
		seq = n + 1
	}

	if seq > maxSequence {
		return "", ierr.WithError(errors.Wrapf(ErrAllocationExhausted, "partition %s is full", prefix)).
			WithHint("No invoice numbers left for this month").
			Mark(ierr.ErrUnavailable)
	}

	return fmt.Sprintf("%s%0*d", prefix, sequenceDigits, seq), nil
}

// Allocate runs Next followed by insert until insert succeeds. A duplicate key
// from insert means another writer took the number, so the maximum is read
// again. Any other error stops immediately. After MaxAttempts collisions the
// result is ErrAllocationExhausted.
func (a *NumberAllocator) Allocate(ctx context.Context, insert func(ctx context.Context, number string) error) (string, error) {
	var (
		number  string
		tried   string
		attempt int
	)

	op := func() error {
		attempt++

		n, err := a.Next(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		tried = n

		if err := insert(ctx, n); err != nil {
			if IsDuplicateKey(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		number = n
		return nil
	}

	notify := func(err error, _ time.Duration) {
		if a.OnRetry != nil {
			a.OnRetry(attempt, tried, err)
		}
	}

	err := backoff.RetryNotify(op, a.backOff(ctx), notify)
	if err == nil {
		return number, nil
	}

	if IsDuplicateKey(err) {
		return "", ierr.WithError(errors.WithSecondaryError(
			errors.Wrapf(ErrAllocationExhausted, "gave up after %d attempt(s)", attempt), err)).
			WithHint("Could not allocate a unique invoice number, please retry").
			WithReportableDetails(map[string]any{
				"attempts": attempt,
			}).
			Mark(ierr.ErrUnavailable)
	}
	return "", err
}

func (a *NumberAllocator) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if a.cfg.InitialInterval > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = a.cfg.InitialInterval
		if a.cfg.MaxInterval > 0 {
			exp.MaxInterval = a.cfg.MaxInterval
		}
		exp.MaxElapsedTime = defaultRetryMaxElapsedCap
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.cfg.MaxAttempts-1)), ctx)
}

// ParseSequence extracts the trailing sequence of number within prefix
func ParseSequence(number, prefix string) (int, error) {
	if !strings.HasPrefix(number, prefix) {
		return 0, ierr.NewErrorf("invoice number %q does not start with %q", number, prefix).
			Mark(ierr.ErrSystem)
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix))
	if err != nil {
		return 0, ierr.WithError(errors.Wrapf(err, "invoice number %q has no numeric sequence", number)).
			Mark(ierr.ErrSystem)
	}
	if seq < 0 {
		return 0, ierr.NewErrorf("invoice number %q has a negative sequence", number).
			Mark(ierr.ErrSystem)
	}
	return seq, nil
}
