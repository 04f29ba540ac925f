package model

// RunStatus is the overall outcome of an ingestion run or of one category
// within it.
type RunStatus string

const (
	// RunRunning marks a run that has started but not finished.
	RunRunning RunStatus = "RUNNING"
	// RunCompleted means every unit succeeded or was skipped.
	RunCompleted RunStatus = "COMPLETED"
	// RunCompletedWithErrors means at least one unit failed.
	RunCompletedWithErrors RunStatus = "COMPLETED_WITH_ERRORS"
	// RunNoSources means nothing was configured to run.
	RunNoSources RunStatus = "NO_SOURCES"
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	return string(s)
}

// SourceCategory identifies one kind of ingestion source.
type SourceCategory string

const (
	// SourceFiles is scheduled file downloads.
	SourceFiles SourceCategory = "scheduled_file_downloads"
	// SourcePages is web page link scraping.
	SourcePages SourceCategory = "web_page_link_scraping"
	// SourceAPIs is public API polling.
	SourceAPIs SourceCategory = "public_api_data"
)

// ItemOutcome summarizes one processed unit.
type ItemOutcome struct {
	Name          string        `json:"name"`
	URL           string        `json:"url,omitempty"`
	Status        Status        `json:"status"`
	Attempts      int           `json:"attempts,omitempty"`
	ArtifactPath  string        `json:"artifact_path,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// CategorySummary aggregates the outcomes of one category.
type CategorySummary struct {
	Category   SourceCategory `json:"category"`
	DataSource string         `json:"data_source,omitempty"`
	Status     RunStatus      `json:"status"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Items      []ItemOutcome  `json:"items"`

	// ByErrorCategory counts failures per error category.
	ByErrorCategory map[ErrorCategory]int `json:"by_error_category,omitempty"`
}

// NewCategorySummary computes the counts and status for items.
func NewCategorySummary(category SourceCategory, dataSource string, items []ItemOutcome) CategorySummary {
	s := CategorySummary{
		Category:   category,
		DataSource: dataSource,
		Total:      len(items),
		Items:      items,
	}
	if s.Items == nil {
		s.Items = []ItemOutcome{}
	}
	for _, item := range items {
		switch {
		case item.Status.IsSuccess():
			s.Succeeded++
		case item.Status == StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
			if s.ByErrorCategory == nil {
				s.ByErrorCategory = make(map[ErrorCategory]int)
			}
			s.ByErrorCategory[item.ErrorCategory]++
		}
	}
	switch {
	case s.Total == 0:
		s.Status = RunNoSources
	case s.Failed > 0:
		s.Status = RunCompletedWithErrors
	default:
		s.Status = RunCompleted
	}
	return s
}

// RunSummary is the result of one `run` invocation.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	FlowName   string            `json:"flow_name"`
	ConfigPath string            `json:"config_path,omitempty"`
	StartedAt  UTCTime           `json:"started_at"`
	FinishedAt UTCTime           `json:"finished_at"`
	Status     RunStatus         `json:"status"`
	Categories []CategorySummary `json:"categories"`
}

// Finalize derives the overall status from the categories.
// A run with no categories, or whose categories are all empty, has status
// NO_SOURCES.
func (s *RunSummary) Finalize() {
	if s.Categories == nil {
		s.Categories = []CategorySummary{}
	}
	s.Status = RunNoSources
	for _, c := range s.Categories {
		switch c.Status {
		case RunCompletedWithErrors:
			s.Status = RunCompletedWithErrors
			return
		case RunCompleted:
			s.Status = RunCompleted
		}
	}
}

// Totals returns the unit counts across all categories.
func (s *RunSummary) Totals() (total, succeeded, failed, skipped int) {
	for _, c := range s.Categories {
		total += c.Total
		succeeded += c.Succeeded
		failed += c.Failed
		skipped += c.Skipped
	}
	return total, succeeded, failed, skipped
}
