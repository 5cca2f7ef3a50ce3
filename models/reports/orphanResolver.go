package reports

import "fmt"

type OrphanResolution struct {
	Valid    []ReportRecord
	Orphaned []ReportRecord
}

// OrphanWarning is advisory; statistics are still computed from valid reports.
type OrphanWarning struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// ResolveOrphans splits reports by whether their person is among persons, keeping input order.
func ResolveOrphans(persons []PersonRecord, reports []ReportRecord) OrphanResolution {
	known := make(map[int]struct{}, len(persons))
	for _, p := range persons {
		known[p.ID] = struct{}{}
	}

	var result OrphanResolution
	for _, r := range reports {
		if _, ok := known[r.PersonId]; ok {
			result.Valid = append(result.Valid, r)
		} else {
			result.Orphaned = append(result.Orphaned, r)
		}
	}
	return result
}

func (r OrphanResolution) Warning() *OrphanWarning {
	if len(r.Orphaned) == 0 {
		return nil
	}
	return &OrphanWarning{
		Count: len(r.Orphaned),
		Message: fmt.Sprintf(
			"%d report(s) reference persons that no longer exist; run orphan cleanup to repair the data",
			len(r.Orphaned),
		),
	}
}
