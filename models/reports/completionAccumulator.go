package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type WeekBucket struct {
	WeekStart time.Time
	Expected  int
	Actual    int
}

func (b WeekBucket) Missing() int {
	return b.Expected - b.Actual
}

// Completion is the result of one accumulation. Buckets are ascending by week.
type Completion struct {
	Buckets       []WeekBucket
	TotalExpected int
	TotalActual   int
}

func (c Completion) TotalMissing() int {
	return c.TotalExpected - c.TotalActual
}

func (c Completion) CompletionRate() string {
	return CompletionRate(c.TotalActual, c.TotalExpected)
}

// Recent returns the last n buckets, still ascending. n <= 0 keeps all.
func (c Completion) Recent(n int) []WeekBucket {
	if n <= 0 || len(c.Buckets) <= n {
		return c.Buckets
	}
	return c.Buckets[len(c.Buckets)-n:]
}

type AccumulateOptions struct {
	// DedupPersonWeek counts at most one report per person per week.
	DedupPersonWeek bool
}

type personWeek struct {
	personId int
	week     time.Time
}

// Accumulate counts expected person-weeks for persons up to reference and matches valid reports
// against them. A report counts only if some person expected a report in its week; reports dated
// before every creation week are dropped.
func Accumulate(persons []PersonRecord, validReports []ReportRecord, reference time.Time, opts AccumulateOptions) Completion {
	buckets := make(map[time.Time]*WeekBucket)
	var result Completion

	for _, p := range persons {
		for _, week := range ExpectedWeeks(p.CreatedAt, reference) {
			b, ok := buckets[week]
			if !ok {
				b = &WeekBucket{WeekStart: week}
				buckets[week] = b
			}
			b.Expected++
			result.TotalExpected++
		}
	}

	var counted map[personWeek]struct{}
	if opts.DedupPersonWeek {
		counted = make(map[personWeek]struct{}, len(validReports))
	}
	for _, r := range validReports {
		week := WeekStart(r.ReportWeek)
		b, ok := buckets[week]
		if !ok {
			continue
		}
		if counted != nil {
			key := personWeek{personId: r.PersonId, week: week}
			if _, dup := counted[key]; dup {
				continue
			}
			counted[key] = struct{}{}
		}
		b.Actual++
		result.TotalActual++
	}

	result.Buckets = make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, *b)
	}
	sort.Slice(result.Buckets, func(i, j int) bool {
		return result.Buckets[i].WeekStart.Before(result.Buckets[j].WeekStart)
	})
	return result
}

// CompletionRate is actual/expected*100 with one decimal, or "0" when nothing was expected.
func CompletionRate(actual, expected int) string {
	if expected == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(actual)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(expected)), 1).
		StringFixed(1)
}
