package ledger

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/davidobonyano/yano-school-next-sub001/core/student"
)

type (
	ClassTotals struct {
		Expected    decimal.Decimal `json:"expected"`
		Collected   decimal.Decimal `json:"collected"`
		Outstanding decimal.Decimal `json:"outstanding"`
	}

	OwingStudent struct {
		StudentID   string          `json:"student_id"`
		StudentName string          `json:"student_name"`
		ClassLabel  string          `json:"class_label"`
		Outstanding decimal.Decimal `json:"outstanding"`
	}

	ClassSummary struct {
		Period   Period                 `json:"period"`
		PerClass map[string]ClassTotals `json:"per_class"`
		Owing    []OwingStudent         `json:"owing"`
		Totals   ClassTotals            `json:"totals"`
		// Dropped counts entries whose student could not be found in the directory.
		// They are left out of every total.
		Dropped         int      `json:"dropped"`
		DroppedStudents []string `json:"dropped_students,omitempty"`
	}
)

func newClassTotals() ClassTotals {
	return ClassTotals{Expected: decimal.Zero, Collected: decimal.Zero, Outstanding: decimal.Zero}
}

func (ct ClassTotals) add(bal PeriodBalance) ClassTotals {
	return ClassTotals{
		Expected:    ct.Expected.Add(bal.Billed),
		Collected:   ct.Collected.Add(bal.Paid),
		Outstanding: ct.Outstanding.Add(bal.Outstanding),
	}
}

// groupByStudent returns the entries of `period` grouped per student, plus the student IDs in sorted order.
func groupByStudent(period Period, entries []Entry) (map[string][]Entry, []string) {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		if e.Period != period {
			continue
		}
		groups[e.StudentID] = append(groups[e.StudentID], e)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}

// Summarize aggregates a period's entries into per-class totals and the owing list.
// Entries of students the directory does not know are dropped and counted;
// any other directory failure aborts the summary.
func Summarize(ctx context.Context, period Period, entries []Entry, dir StudentDirectory) (ClassSummary, error) {
	summary := ClassSummary{
		Period:   period,
		PerClass: make(map[string]ClassTotals),
		Owing:    []OwingStudent{},
		Totals:   newClassTotals(),
	}

	groups, ids := groupByStudent(period, entries)
	for _, id := range ids {
		st, err := dir.LookupStudent(ctx, id)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				summary.Dropped += len(groups[id])
				summary.DroppedStudents = append(summary.DroppedStudents, id)
				continue
			}
			return ClassSummary{}, errors.Wrapf(err, "looking up student %s", id)
		}

		bal := Calculate(id, period, groups[id])
		label := st.ClassLabel()
		totals, ok := summary.PerClass[label]
		if !ok {
			totals = newClassTotals()
		}
		summary.PerClass[label] = totals.add(bal)
		summary.Totals = summary.Totals.add(bal)

		if bal.Outstanding.IsPositive() {
			summary.Owing = append(summary.Owing, OwingStudent{
				StudentID:   id,
				StudentName: st.Name,
				ClassLabel:  label,
				Outstanding: bal.Outstanding,
			})
		}
	}

	sortOwing(summary.Owing)
	return summary, nil
}

// sortOwing orders by class label then student name; byte-wise comparison keeps the order stable across locales.
func sortOwing(owing []OwingStudent) {
	sort.SliceStable(owing, func(i, j int) bool {
		a, b := owing[i], owing[j]
		if a.ClassLabel != b.ClassLabel {
			return a.ClassLabel < b.ClassLabel
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.StudentID < b.StudentID
	})
}
