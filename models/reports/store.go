package reports

import (
	"context"
	"sort"
	"time"
)

// PersonRecord is the slice of a person the statistics engine reads.
type PersonRecord struct {
	ID        int
	UserId    int
	Name      string
	CreatedAt time.Time
}

type ReportRecord struct {
	ID         int
	PersonId   int
	UserId     int
	ReportWeek time.Time
	HasContact bool
	Content    string
	CreatedAt  time.Time
}

type UserRecord struct {
	ID       int
	Username string
	Name     string
}

// PersonFilter narrows ListPersons. A nil UserId means every owner.
type PersonFilter struct {
	UserId *int
}

// ReportFilter narrows ListReports by filer and, when non-empty, by person.
type ReportFilter struct {
	UserId    *int
	PersonIds []int
}

// Store supplies the snapshot a statistics computation runs on.
type Store interface {
	ListPersons(ctx context.Context, filter PersonFilter) ([]PersonRecord, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error)
	FindUsers(ctx context.Context, ids []int) (map[int]UserRecord, error)
}

// DistinctOwners returns the owner ids of persons, ascending.
func DistinctOwners(persons []PersonRecord) []int {
	seen := make(map[int]struct{}, len(persons))
	owners := make([]int, 0)
	for _, p := range persons {
		if _, ok := seen[p.UserId]; ok {
			continue
		}
		seen[p.UserId] = struct{}{}
		owners = append(owners, p.UserId)
	}
	sort.Ints(owners)
	return owners
}
