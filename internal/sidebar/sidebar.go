// Package sidebar builds the record list shown next to the map, either as a
// flat list ordered by visit date or as a month-by-month timeline.
package sidebar

import (
	"cmp"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Mode selects how the sidebar renders the collection.
type Mode string

const (
	ModeList     Mode = "list"
	ModeTimeline Mode = "timeline"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeList, ModeTimeline:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown sidebar mode %q", domain.ErrValidation, s)
}

// PreviewLength is the maximum number of runes of feelings shown in a row.
const PreviewLength = 120

// Row is one record as displayed in the sidebar.
type Row struct {
	ID        string
	Location  string
	VisitDate string // "2006-01-02"
	Date      string // display form, e.g. "Mar 10, 2024"
	Preview   string
	Selected  bool
}

// Group is one (year, month) bucket of the timeline.
type Group struct {
	Label string // e.g. "March 2024"
	Year  int
	Month time.Month
	Rows  []Row
}

// View is everything the sidebar renders.
type View struct {
	Mode       Mode
	Empty      bool
	Rows       []Row   // ModeList only
	Groups     []Group // ModeTimeline only
	Count      int
	CountLabel string
}

// SortByVisitDate returns records ordered by visit date, most recent first.
// Records with equal dates keep their relative order.
func SortByVisitDate(records []domain.TravelRecord) []domain.TravelRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b domain.TravelRecord) int {
		return b.VisitDate.Compare(a.VisitDate)
	})
	return sorted
}

// TimelineGroup is a (year, month) bucket of records in insertion order.
type TimelineGroup struct {
	Year    int
	Month   time.Month
	Records []domain.TravelRecord
}

// Label renders the group heading, e.g. "March 2024".
func (g TimelineGroup) Label() string {
	return fmt.Sprintf("%s %d", g.Month, g.Year)
}

// GroupByMonth buckets records by the year and month of their visit date.
// Groups are ordered most recent first; inside a group records keep their
// original order and are not re-sorted by day.
func GroupByMonth(records []domain.TravelRecord) []TimelineGroup {
	var groups []TimelineGroup
	for _, r := range records {
		y, m := r.VisitDate.Year(), r.VisitDate.Month()
		i := slices.IndexFunc(groups, func(g TimelineGroup) bool { return g.Year == y && g.Month == m })
		if i < 0 {
			groups = append(groups, TimelineGroup{Year: y, Month: m})
			i = len(groups) - 1
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	slices.SortFunc(groups, func(a, b TimelineGroup) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})
	return groups
}

// Build renders records in the given mode, flagging the row whose ID is
// selectedID.
func Build(records []domain.TravelRecord, selectedID string, mode Mode) View {
	v := View{
		Mode:       mode,
		Empty:      len(records) == 0,
		Count:      len(records),
		CountLabel: CountLabel(len(records)),
	}
	switch mode {
	case ModeTimeline:
		for _, g := range GroupByMonth(records) {
			v.Groups = append(v.Groups, Group{
				Label: g.Label(),
				Year:  g.Year,
				Month: g.Month,
				Rows:  rows(g.Records, selectedID),
			})
		}
	default:
		v.Mode = ModeList
		v.Rows = rows(SortByVisitDate(records), selectedID)
	}
	return v
}

// CountLabel renders the footer count, e.g. "1 record" or "3 records".
func CountLabel(n int) string {
	if n == 1 {
		return "1 record"
	}
	return fmt.Sprintf("%d records", n)
}

// FormatDate renders a visit date for display, e.g. "Mar 10, 2024".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// Preview truncates s to PreviewLength runes, appending an ellipsis when cut.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:PreviewLength]) + "…"
}

func rows(records []domain.TravelRecord, selectedID string) []Row {
	out := make([]Row, len(records))
	for i, r := range records {
		out[i] = Row{
			ID:        r.ID,
			Location:  r.Location,
			VisitDate: r.VisitDate.Format(domain.DateLayout),
			Date:      FormatDate(r.VisitDate),
			Preview:   Preview(r.Feelings),
			Selected:  selectedID != "" && r.ID == selectedID,
		}
	}
	return out
}
