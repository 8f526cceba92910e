package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Report is the immutable (once Finish is called) aggregated outcome
// of a validator run: totals, the error-kind histogram and its top-5
// view, optional per-record detail, and free-form statistics.
type Report struct {
	ValidatorName  string
	StartTime      time.Time
	EndTime        time.Time
	TotalRecords   int
	ValidRecords   int
	InvalidRecords int
	ErrorSummary   ErrorSummary
	DetailedErrors []DetailedError
	Statistics     map[string]any
}

// DetailedError is one per-record validation failure kept when detail
// tracking is enabled.
type DetailedError struct {
	Line    int
	Kind    Kind
	Message string
}

// NewReport starts a fresh report for the named validator.
func NewReport(validatorName string) *Report {
	now := time.Now()
	return &Report{
		ValidatorName: validatorName,
		StartTime:     now,
		EndTime:       now,
		Statistics:    map[string]any{},
	}
}

// Finish stamps the end time. Callers should not mutate the report
// after calling Finish.
func (r *Report) Finish() *Report {
	r.EndTime = time.Now()
	return r
}

// AddSuccess records one passing record.
func (r *Report) AddSuccess() {
	r.TotalRecords++
	r.ValidRecords++
}

// AddError records one failing record at the given line/index,
// updating the error-kind histogram and, if detail tracking is
// enabled, the detailed error log.
func (r *Report) AddError(line int, err *Error, detailed bool) {
	r.TotalRecords++
	r.InvalidRecords++
	r.ErrorSummary.Add(err.Kind)
	if detailed {
		r.DetailedErrors = append(r.DetailedErrors, DetailedError{
			Line: line, Kind: err.Kind, Message: err.Error(),
		})
	}
}

// AddStatistic attaches a named free-form statistic.
func (r *Report) AddStatistic(key string, value any) {
	r.Statistics[key] = value
}

// SuccessRate returns ValidRecords/TotalRecords, or 0 for an empty report.
func (r *Report) SuccessRate() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.ValidRecords) / float64(r.TotalRecords)
}

// ProcessingTime returns wall-clock seconds between start and end.
func (r *Report) ProcessingTime() float64 {
	return r.EndTime.Sub(r.StartTime).Seconds()
}

// MergeReports combines multiple reports: counters sum, histograms
// union, detail lists concatenate, and wall times take min(start) and
// max(end).
func MergeReports(reports []*Report) *Report {
	if len(reports) == 0 {
		return nil
	}
	merged := NewReport("MergedReport")
	merged.StartTime = reports[0].StartTime
	merged.EndTime = reports[0].EndTime

	for _, r := range reports {
		if r.StartTime.Before(merged.StartTime) {
			merged.StartTime = r.StartTime
		}
		if r.EndTime.After(merged.EndTime) {
			merged.EndTime = r.EndTime
		}
		merged.TotalRecords += r.TotalRecords
		merged.ValidRecords += r.ValidRecords
		merged.InvalidRecords += r.InvalidRecords
		merged.ErrorSummary.Merge(r.ErrorSummary)
		merged.DetailedErrors = append(merged.DetailedErrors, r.DetailedErrors...)
	}
	return merged
}

// ErrorSummary is the per-kind error histogram plus its top-5 view,
// sorted descending on count with ties broken by insertion order.
type ErrorSummary struct {
	Counts     map[Kind]int
	order      []Kind
	TopErrors  []KindCount
}

// KindCount pairs an error kind with its occurrence count.
type KindCount struct {
	Kind  Kind
	Count int
}

// Add records one occurrence of kind and refreshes TopErrors.
func (s *ErrorSummary) Add(kind Kind) {
	if s.Counts == nil {
		s.Counts = make(map[Kind]int)
	}
	if _, seen := s.Counts[kind]; !seen {
		s.order = append(s.order, kind)
	}
	s.Counts[kind]++
	s.updateTop()
}

// Merge folds another summary's counts into this one.
func (s *ErrorSummary) Merge(other ErrorSummary) {
	if s.Counts == nil {
		s.Counts = make(map[Kind]int)
	}
	for _, k := range other.order {
		if _, seen := s.Counts[k]; !seen {
			s.order = append(s.order, k)
		}
		s.Counts[k] += other.Counts[k]
	}
	s.updateTop()
}

func (s *ErrorSummary) updateTop() {
	counts := make([]KindCount, 0, len(s.order))
	for _, k := range s.order {
		counts = append(counts, KindCount{Kind: k, Count: s.Counts[k]})
	}
	// stable sort preserves insertion order for ties.
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > 5 {
		counts = counts[:5]
	}
	s.TopErrors = counts
}

// FormatText renders a human-readable summary.
func FormatText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Validation report: %s ===\n", r.ValidatorName)
	fmt.Fprintf(&b, "start: %s\n", r.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "end:   %s\n", r.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "processing time: %.2fs\n\n", r.ProcessingTime())
	fmt.Fprintf(&b, "total: %d\n", r.TotalRecords)
	fmt.Fprintf(&b, "valid: %d (%.2f%%)\n", r.ValidRecords, r.SuccessRate()*100)
	fmt.Fprintf(&b, "invalid: %d (%.2f%%)\n\n", r.InvalidRecords, (1-r.SuccessRate())*100)
	if len(r.ErrorSummary.TopErrors) > 0 {
		b.WriteString("top errors:\n")
		for _, kc := range r.ErrorSummary.TopErrors {
			fmt.Fprintf(&b, "  %s: %d\n", kc.Kind, kc.Count)
		}
	}
	return b.String()
}

// FormatJSON renders a machine-readable dump of the report.
func FormatJSON(r *Report) (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
