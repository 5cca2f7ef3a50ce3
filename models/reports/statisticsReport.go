package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("contacts_backend/reports")

const (
	defaultWeekLimit   = 12
	defaultRecentLimit = 10
)

// AllWeeks as Options.WeekLimit keeps every week bucket in the series.
const AllWeeks = -1

type Options struct {
	DedupPersonWeek bool
	WeekLimit       int
	RecentLimit     int
	Logger          *logrus.Logger
}

// OptionsFromEnv reads the STATS_* feature flags.
func OptionsFromEnv() Options {
	return Options{
		DedupPersonWeek: config.StatsDedupPersonWeek(),
		WeekLimit:       config.StatsWeekLimit(),
		RecentLimit:     config.StatsRecentLimit(),
		Logger:          config.GetLogger(),
	}
}

type WeekStat struct {
	WeekStart      string `json:"weekStart"`
	Expected       int    `json:"expected"`
	Actual         int    `json:"actual"`
	Missing        int    `json:"missing"`
	CompletionRate string `json:"completionRate"`
}

type RecentReport struct {
	ID         int       `json:"id"`
	PersonId   int       `json:"personId"`
	PersonName string    `json:"personName"`
	UserId     int       `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	ReportWeek string    `json:"reportWeek"`
	HasContact bool      `json:"hasContact"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Totals struct {
	TotalPersons         int    `json:"totalPersons"`
	TotalReports         int    `json:"totalReports"`
	ValidReports         int    `json:"validReports"`
	TotalExpectedReports int    `json:"totalExpectedReports"`
	TotalActualReports   int    `json:"totalActualReports"`
	TotalMissingReports  int    `json:"totalMissingReports"`
	ReportCompletionRate string `json:"reportCompletionRate"`
}

type AccountStatistics struct {
	UserId int `json:"userId"`
	Totals
	WeekStats     []WeekStat     `json:"weekStats"`
	RecentReports []RecentReport `json:"recentReports"`
	OrphanWarning *OrphanWarning `json:"orphanWarning,omitempty"`
}

type AccountBreakdown struct {
	UserId               int    `json:"userId"`
	Username             string `json:"username"`
	Name                 string `json:"name"`
	TotalPersons         int    `json:"totalPersons"`
	TotalReports         int    `json:"totalReports"`
	TotalExpectedReports int    `json:"totalExpectedReports"`
	TotalActualReports   int    `json:"totalActualReports"`
	TotalMissingReports  int    `json:"totalMissingReports"`
	ReportCompletionRate string `json:"reportCompletionRate"`
}

type GlobalStatistics struct {
	TotalAccounts int `json:"totalAccounts"`
	Totals
	WeekStats        []WeekStat         `json:"weekStats"`
	AccountBreakdown []AccountBreakdown `json:"accountBreakdown"`
	RecentReports    []RecentReport     `json:"recentReports"`
	OrphanWarning    *OrphanWarning     `json:"orphanWarning,omitempty"`
}

// StatisticsService computes completion statistics from one store snapshot per call.
type StatisticsService struct {
	store Store
	opts  Options
}

func NewStatisticsService(store Store, opts Options) *StatisticsService {
	if opts.WeekLimit == 0 {
		opts.WeekLimit = defaultWeekLimit
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}
	return &StatisticsService{store: store, opts: opts}
}

func (s *StatisticsService) accumulateOptions() AccumulateOptions {
	return AccumulateOptions{DedupPersonWeek: s.opts.DedupPersonWeek}
}

// ComputeAccountStatistics covers the persons userId owns and the reports userId filed.
func (s *StatisticsService) ComputeAccountStatistics(ctx context.Context, userId int, now time.Time) (_ *AccountStatistics, err error) {
	ctx, span := tracer.Start(ctx, "reports.ComputeAccountStatistics")
	span.SetAttributes(attribute.Int("user_id", userId))
	defer func() { endSpan(span, err) }()

	persons, err := s.store.ListPersons(ctx, PersonFilter{UserId: &userId})
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	filed, err := s.store.ListReports(ctx, ReportFilter{UserId: &userId})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	resolution := ResolveOrphans(persons, filed)
	completion := Accumulate(persons, resolution.Valid, now, s.accumulateOptions())
	warning := resolution.Warning()
	s.logOrphans(ctx, warning, userId)

	result := &AccountStatistics{
		UserId:        userId,
		Totals:        totalsOf(len(persons), len(filed), len(resolution.Valid), completion),
		WeekStats:     weekStatsOf(completion.Recent(s.opts.WeekLimit)),
		RecentReports: s.recentReports(resolution.Valid, personNames(persons), nil),
		OrphanWarning: warning,
	}
	span.SetAttributes(attribute.Int("expected", completion.TotalExpected), attribute.Int("actual", completion.TotalActual))
	return result, nil
}

// ComputeGlobalStatistics covers every person and report, plus an independent rollup per owner.
func (s *StatisticsService) ComputeGlobalStatistics(ctx context.Context, now time.Time) (_ *GlobalStatistics, err error) {
	ctx, span := tracer.Start(ctx, "reports.ComputeGlobalStatistics")
	defer func() { endSpan(span, err) }()

	persons, err := s.store.ListPersons(ctx, PersonFilter{})
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	filed, err := s.store.ListReports(ctx, ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	resolution := ResolveOrphans(persons, filed)
	completion := Accumulate(persons, resolution.Valid, now, s.accumulateOptions())
	warning := resolution.Warning()
	s.logOrphans(ctx, warning, 0)

	owners := DistinctOwners(persons)
	recent := s.pickRecent(resolution.Valid)

	userIds := append([]int{}, owners...)
	for _, r := range recent {
		userIds = append(userIds, r.UserId)
	}
	users, err := s.store.FindUsers(ctx, userIds)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	result := &GlobalStatistics{
		TotalAccounts:    len(owners),
		Totals:           totalsOf(len(persons), len(filed), len(resolution.Valid), completion),
		WeekStats:        weekStatsOf(completion.Recent(s.opts.WeekLimit)),
		AccountBreakdown: s.breakdown(owners, persons, filed, users, now),
		RecentReports:    recentReportsOf(recent, personNames(persons), users),
		OrphanWarning:    warning,
	}
	span.SetAttributes(
		attribute.Int("accounts", len(owners)),
		attribute.Int("expected", completion.TotalExpected),
		attribute.Int("actual", completion.TotalActual),
	)
	return result, nil
}

// breakdown re-runs the accumulator for each owner over that owner's persons and filed reports.
func (s *StatisticsService) breakdown(owners []int, persons []PersonRecord, filed []ReportRecord, users map[int]UserRecord, now time.Time) []AccountBreakdown {
	personsByOwner := make(map[int][]PersonRecord, len(owners))
	for _, p := range persons {
		personsByOwner[p.UserId] = append(personsByOwner[p.UserId], p)
	}
	filedByUser := make(map[int][]ReportRecord)
	for _, r := range filed {
		filedByUser[r.UserId] = append(filedByUser[r.UserId], r)
	}

	result := make([]AccountBreakdown, 0, len(owners))
	for _, ownerId := range owners {
		owned := personsByOwner[ownerId]
		resolution := ResolveOrphans(owned, filedByUser[ownerId])
		completion := Accumulate(owned, resolution.Valid, now, s.accumulateOptions())
		user := users[ownerId]
		result = append(result, AccountBreakdown{
			UserId:               ownerId,
			Username:             user.Username,
			Name:                 user.Name,
			TotalPersons:         len(owned),
			TotalReports:         len(filedByUser[ownerId]),
			TotalExpectedReports: completion.TotalExpected,
			TotalActualReports:   completion.TotalActual,
			TotalMissingReports:  completion.TotalMissing(),
			ReportCompletionRate: completion.CompletionRate(),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].UserId < result[j].UserId
	})
	return result
}

// pickRecent returns the newest valid reports by creation time.
func (s *StatisticsService) pickRecent(valid []ReportRecord) []ReportRecord {
	sorted := make([]ReportRecord, len(valid))
	copy(sorted, valid)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > s.opts.RecentLimit {
		sorted = sorted[:s.opts.RecentLimit]
	}
	return sorted
}

func (s *StatisticsService) recentReports(valid []ReportRecord, names map[int]string, users map[int]UserRecord) []RecentReport {
	return recentReportsOf(s.pickRecent(valid), names, users)
}

func (s *StatisticsService) logOrphans(ctx context.Context, warning *OrphanWarning, userId int) {
	if warning == nil || s.opts.Logger == nil {
		return
	}
	fields := logrus.Fields{
		"field":         "StatisticsService",
		"orphan_count":  warning.Count,
		"scope_user_id": userId,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = cid
	}
	s.opts.Logger.WithFields(fields).Warn(warning.Message)
}

func recentReportsOf(reports []ReportRecord, names map[int]string, users map[int]UserRecord) []RecentReport {
	result := make([]RecentReport, 0, len(reports))
	for _, r := range reports {
		item := RecentReport{
			ID:         r.ID,
			PersonId:   r.PersonId,
			PersonName: names[r.PersonId],
			UserId:     r.UserId,
			ReportWeek: r.ReportWeek.UTC().Format(weekKeyLayout),
			HasContact: r.HasContact,
			Content:    r.Content,
			CreatedAt:  r.CreatedAt,
		}
		if u, ok := users[r.UserId]; ok {
			item.UserName = u.Name
		}
		result = append(result, item)
	}
	return result
}

func totalsOf(persons, filed, valid int, c Completion) Totals {
	return Totals{
		TotalPersons:         persons,
		TotalReports:         filed,
		ValidReports:         valid,
		TotalExpectedReports: c.TotalExpected,
		TotalActualReports:   c.TotalActual,
		TotalMissingReports:  c.TotalMissing(),
		ReportCompletionRate: c.CompletionRate(),
	}
}

func weekStatsOf(buckets []WeekBucket) []WeekStat {
	result := make([]WeekStat, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, WeekStat{
			WeekStart:      b.WeekStart.Format(weekKeyLayout),
			Expected:       b.Expected,
			Actual:         b.Actual,
			Missing:        b.Missing(),
			CompletionRate: CompletionRate(b.Actual, b.Expected),
		})
	}
	return result
}

func personNames(persons []PersonRecord) map[int]string {
	names := make(map[int]string, len(persons))
	for _, p := range persons {
		names[p.ID] = p.Name
	}
	return names
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
