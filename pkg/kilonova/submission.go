package kilonova

import (
	"net/http"
	"strconv"

	"github.com/relvacode/iso8601"
	"github.com/shopspring/decimal"

	"github.com/kiloprojects/go-client/pkg/request"
)

type SubmissionStatus string

const (
	SubmissionStatusNone     = SubmissionStatus("")
	SubmissionStatusCreating = SubmissionStatus("creating")
	SubmissionStatusWaiting  = SubmissionStatus("waiting")
	SubmissionStatusWorking  = SubmissionStatus("working")
	SubmissionStatusFinished = SubmissionStatus("finished")
)

const DefaultOrdering = "id"

type Submission struct {
	ID        int              `json:"id"`
	CreatedAt iso8601.Time     `json:"created_at"`
	UserID    int              `json:"user_id"`
	ProblemID int              `json:"problem_id"`
	Language  string           `json:"language"`
	Code      string           `json:"code,omitempty"`
	CodeSize  int              `json:"code_size"`
	Status    SubmissionStatus `json:"status"`

	CompileError   *bool   `json:"compile_error"`
	CompileMessage *string `json:"compile_message,omitempty"`

	ContestID *int `json:"contest_id"`

	MaxTime   float64 `json:"max_time"`
	MaxMemory int     `json:"max_memory"`

	Score          decimal.Decimal `json:"score"`
	ScorePrecision int32           `json:"score_precision"`
}

// ScoreString returns the score rounded to the score precision.
func (s *Submission) ScoreString() string {
	return s.Score.StringFixed(s.ScorePrecision)
}

type SubTest struct {
	ID           int             `json:"id"`
	CreatedAt    iso8601.Time    `json:"created_at"`
	Done         bool            `json:"done"`
	Verdict      string          `json:"verdict"`
	Time         float64         `json:"time"`
	Memory       int             `json:"memory"`
	Percentage   decimal.Decimal `json:"percentage"`
	TestID       *int            `json:"test_id"`
	UserID       int             `json:"user_id"`
	SubmissionID int             `json:"submission_id"`
	ContestID    *int            `json:"contest_id"`
	VisibleID    int             `json:"visible_id"`
	Score        decimal.Decimal `json:"score"`
}

type SubmissionSubTask struct {
	ID           int          `json:"id"`
	CreatedAt    iso8601.Time `json:"created_at"`
	SubmissionID int          `json:"submission_id"`
	UserID       int          `json:"user_id"`
	SubtaskID    *int         `json:"subtask_id"`
	ProblemID    int          `json:"problem_id"`
	ContestID    *int         `json:"contest_id"`
	VisibleID    int          `json:"visible_id"`

	Score           decimal.Decimal  `json:"score"`
	FinalPercentage *decimal.Decimal `json:"final_percentage,omitempty"`
	ScorePrecision  int              `json:"score_precision"`

	Subtests []int `json:"subtests"`
}

type FullSubmission struct {
	Submission
	Author   *UserBrief           `json:"author"`
	Problem  *Problem             `json:"problem"`
	SubTests []*SubTest           `json:"subtests"`
	SubTasks []*SubmissionSubTask `json:"subtasks"`

	ProblemEditor    bool `json:"problem_editor"`
	CodeTrulyVisible bool `json:"truly_visible"`
}

// Submissions is one page of the submission search.
type Submissions struct {
	Submissions    []*Submission         `json:"submissions"`
	Count          int                   `json:"count"`
	TruncatedCount bool                  `json:"truncated_count"`
	Users          map[string]*UserBrief `json:"users"`
	Problems       map[string]*Problem   `json:"problems"`
}

// SubmissionQuery filters the submission search.
// Zero values are unset, see the Query method.
type SubmissionQuery struct {
	UserID        int
	ProblemID     int
	ProblemListID int
	ContestID     int
	// Score filter, nil or a negative value is unset, so zero score can be searched.
	Score  *int
	Status SubmissionStatus
	Lang   string

	CompileError *bool

	// Ordering is the sort key, the default is DefaultOrdering.
	Ordering string
	// Ascending is used only if the Ordering is set.
	Ascending bool

	// Page is 1-indexed, values < 1 are treated as 1.
	Page int
	// Limit is the page size, the default is PageSize.
	Limit int
}

// Query encodes the search to query parameters, unset filters are omitted.
func (q SubmissionQuery) Query() request.Query {
	ordering, ascending := q.Ordering, q.Ascending
	if ordering == "" {
		ordering, ascending = DefaultOrdering, false
	}
	page := max(q.Page, 1)
	limit := q.Limit
	if limit <= 0 {
		limit = PageSize
	}

	out := request.Query{
		"ordering":  ordering,
		"ascending": ascending,
		"offset":    (page - 1) * PageSize,
		"limit":     limit,
	}
	for key, id := range map[string]int{
		"user_id":         q.UserID,
		"problem_id":      q.ProblemID,
		"problem_list_id": q.ProblemListID,
		"contest_id":      q.ContestID,
	} {
		if id > 0 {
			out[key] = id
		}
	}
	if q.Score != nil && *q.Score >= 0 {
		out["score"] = *q.Score
	}
	if q.Status != SubmissionStatusNone {
		out["status"] = string(q.Status)
	}
	if q.Lang != "" {
		out["lang"] = q.Lang
	}
	if q.CompileError != nil {
		out["compile_error"] = *q.CompileError
	}
	return out
}

// SubmissionsRequest searches submissions.
func (a *API) SubmissionsRequest(q SubmissionQuery) request.APIRequest[*Submissions] {
	return newAPIRequest[Submissions](a, RequestParams{
		Method: http.MethodGet,
		URL:    "submissions/get",
		Query:  q.Query(),
	})
}

// SubmissionRequest gets the submission with subtests and subtasks.
func (a *API) SubmissionRequest(id int) request.APIRequest[*FullSubmission] {
	return newAPIRequest[FullSubmission](a, RequestParams{
		Method: http.MethodGet,
		URL:    "submissions/getByID",
		Query:  request.Query{"id": strconv.Itoa(id)},
	})
}
