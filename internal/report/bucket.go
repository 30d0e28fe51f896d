package report

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lvanheel/teamdigest/internal/window"
)

// timestampLayout is the source timestamp format after the fixed-width
// timezone suffix has been stripped.
const timestampLayout = "2006-01-02T15:04:05"

// suffixLen is the width of the trailing fragment (e.g. ".000Z" or a UTC
// offset) the source appends to every completion timestamp.
const suffixLen = 5

// ParseCompletedAt strips the fixed-width suffix from a source timestamp and
// returns the calendar date of completion. A timestamp that does not match
// the expected format means the API contract changed; the error is fatal for
// the run rather than recovered per task.
func ParseCompletedAt(ts string) (time.Time, error) {
	if len(ts) <= suffixLen {
		return time.Time{}, fmt.Errorf("completion timestamp %q too short", ts)
	}
	t, err := time.Parse(timestampLayout, ts[:len(ts)-suffixLen])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed completion timestamp %q: %w", ts, err)
	}
	return window.Date(t), nil
}

// Bucket groups formatted task lines by window start date and project name.
// It has exactly one writer (the Bucketer, during one run) and is read-only
// during assembly and dispatch.
type Bucket map[time.Time]map[string][]string

// NewBucket seeds an entry for every window so that windows with no
// eligible tasks still exist as (empty) reporting periods.
func NewBucket(windows []window.Window) Bucket {
	b := make(Bucket, len(windows))
	for _, w := range windows {
		b[w.Key()] = make(map[string][]string)
	}
	return b
}

// Projects returns the project names present for a window key, sorted.
func (b Bucket) Projects(key time.Time) []string {
	names := make([]string, 0, len(b[key]))
	for name := range b[key] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bucketer classifies completed tasks into window/project buckets.
type Bucketer struct {
	Windows        []window.Window
	TeamMembers    map[string]struct{}
	IgnoreProjects map[string]struct{}

	// KeepEmptySections preserves the historical behavior where a project
	// section is created as soon as any of its tasks survives the
	// completion/header/window filters, before the roster check. A project
	// whose tasks were all done by non-members then shows up as an empty
	// section. Off, the section only appears once a roster member's task
	// lands in it.
	KeepEmptySections bool

	Logger *slog.Logger
}

// NewBucketer builds a Bucketer over the run's window set.
func NewBucketer(windows []window.Window, teamMembers, ignoreProjects []string, logger *slog.Logger) *Bucketer {
	team := make(map[string]struct{}, len(teamMembers))
	for _, m := range teamMembers {
		team[m] = struct{}{}
	}
	ignore := make(map[string]struct{}, len(ignoreProjects))
	for _, p := range ignoreProjects {
		ignore[p] = struct{}{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bucketer{
		Windows:           windows,
		TeamMembers:       team,
		IgnoreProjects:    ignore,
		KeepEmptySections: true,
		Logger:            logger,
	}
}

// IgnoredProject reports whether a project is excluded from reports.
func (b *Bucketer) IgnoredProject(name string) bool {
	_, ok := b.IgnoreProjects[name]
	return ok
}

func (b *Bucketer) isTeamMember(task Task) bool {
	_, ok := b.TeamMembers[task.Assignee]
	return ok
}

// windowFor returns the window containing the completion date, or false if
// the date is out of scope for this run. Windows are disjoint, so at most
// one can match.
func (b *Bucketer) windowFor(date time.Time) (window.Window, bool) {
	for _, w := range b.Windows {
		if w.Contains(date) {
			return w, true
		}
	}
	return window.Window{}, false
}

// Bucket filters the fetched tasks and places the eligible ones in their
// window/project slot, rendered as report lines in arrival order. Tasks are
// dropped silently when incomplete, colon-suffixed (section headers in the
// source system), outside every window, assigned outside the roster, or in
// an ignored project. A malformed completion timestamp aborts the run.
func (b *Bucketer) Bucket(tasks []Task) (Bucket, error) {
	bucket := NewBucket(b.Windows)
	for _, task := range tasks {
		if !task.Completed {
			continue
		}
		if strings.HasSuffix(task.Name, ":") {
			continue
		}
		if b.IgnoredProject(task.Project) {
			continue
		}
		date, err := ParseCompletedAt(task.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.ID, err)
		}
		w, ok := b.windowFor(date)
		if !ok {
			continue
		}
		key := w.Key()
		if b.KeepEmptySections {
			if _, ok := bucket[key][task.Project]; !ok {
				bucket[key][task.Project] = []string{}
			}
		}
		if !b.isTeamMember(task) {
			continue
		}
		line := fmt.Sprintf("* %s completed by %s on %s", task.Name, task.Assignee, date.Format("2006-01-02"))
		b.Logger.Info("task bucketed", "window", key.Format("2006-01-02"), "project", task.Project, "line", line)
		bucket[key][task.Project] = append(bucket[key][task.Project], line)
	}
	return bucket, nil
}
