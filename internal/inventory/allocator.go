package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	CodePrefix = "FUR-"
	// maxCollisionProbes bounds the walk past taken codes before giving up
	// on the sequence and using a timestamp code.
	maxCollisionProbes = 1000
)

// Allocation is a product code picked by the allocator. Fallback is set when
// the sequence could not be read and a timestamp code was used instead.
type Allocation struct {
	Code     string
	Fallback bool
}

type Allocator struct {
	store  CodeStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAllocator(store CodeStore, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{store: store, logger: logger, now: time.Now}
}

// Allocate returns the next unused FUR-### code. It never fails: when the
// store misbehaves it returns FUR-T<6 digits> derived from the clock.
func (a *Allocator) Allocate(ctx context.Context) Allocation {
	code, err := a.nextSequential(ctx)
	if err == nil {
		return Allocation{Code: code}
	}

	fallback := a.timestampCode()
	a.logger.Warn("product code allocation fell back to timestamp",
		zap.String("code", fallback),
		zap.Error(errors.Wrap(ErrAllocationFallback, err.Error())),
	)
	return Allocation{Code: fallback, Fallback: true}
}

func (a *Allocator) nextSequential(ctx context.Context) (string, error) {
	latest, found, err := a.store.LatestSequentialCode(ctx)
	if err != nil {
		return "", errors.Wrap(err, "latest product code")
	}

	candidate := 1
	if found {
		n, err := ParseSequence(latest)
		if err != nil {
			return "", err
		}
		candidate = n + 1
	}

	for i := 0; i < maxCollisionProbes; i++ {
		code := FormatCode(candidate)
		taken, err := a.store.CodeExists(ctx, code)
		if err != nil {
			return "", errors.Wrapf(err, "check product code %s", code)
		}
		if !taken {
			return code, nil
		}
		candidate++
	}
	return "", fmt.Errorf("no free product code after %d probes", maxCollisionProbes)
}

func (a *Allocator) timestampCode() string {
	return fmt.Sprintf("%sT%06d", CodePrefix, a.now().UnixMilli()%1_000_000)
}

// FormatCode renders a sequence number as FUR-###.
func FormatCode(n int) string {
	return fmt.Sprintf("%s%03d", CodePrefix, n)
}

// ParseSequence extracts the numeric suffix of a FUR-<digits> code.
func ParseSequence(code string) (int, error) {
	digits, ok := strings.CutPrefix(code, CodePrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("not a sequential product code: %q", code)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a sequential product code: %q", code)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.Wrapf(err, "parse product code %q", code)
	}
	return n, nil
}
