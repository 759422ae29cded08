package kilonova_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/kiloprojects/go-client/pkg/kilonova"
)

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func TestSubmissionQuery_Defaults(t *testing.T) {
	t.Parallel()
	values := SubmissionQuery{Page: 2}.Query().Values()
	assert.Equal(t, url.Values{
		"ordering":  {"id"},
		"ascending": {"false"},
		"offset":    {"50"},
		"limit":     {"50"},
	}, values)
}

func TestSubmissionQuery_Offset(t *testing.T) {
	t.Parallel()
	for page, offset := range map[int]string{-1: "0", 0: "0", 1: "0", 2: "50", 3: "100", 10: "450"} {
		assert.Equal(t, offset, SubmissionQuery{Page: page}.Query().Values().Get("offset"), page)
	}
	// Offset does not depend on the limit
	assert.Equal(t, "50", SubmissionQuery{Page: 2, Limit: 10}.Query().Values().Get("offset"))
	assert.Equal(t, "10", SubmissionQuery{Page: 2, Limit: 10}.Query().Values().Get("limit"))
	assert.Equal(t, "50", SubmissionQuery{Limit: -5}.Query().Values().Get("limit"))
}

func TestSubmissionQuery_NonPositiveFilters(t *testing.T) {
	t.Parallel()
	values := SubmissionQuery{
		UserID:        0,
		ProblemID:     -1,
		ProblemListID: -10,
		ContestID:     0,
		Score:         intPtr(-1),
	}.Query().Values()
	for _, key := range []string{"user_id", "problem_id", "problem_list_id", "contest_id", "score", "lang", "status", "compile_error"} {
		assert.NotContains(t, values, key)
	}
}

func TestSubmissionQuery_AllFilters(t *testing.T) {
	t.Parallel()
	values := SubmissionQuery{
		UserID:        1,
		ProblemID:     2,
		ProblemListID: 3,
		ContestID:     4,
		Score:         intPtr(0),
		Status:        SubmissionStatusFinished,
		Lang:          "cpp17",
		CompileError:  boolPtr(false),
		Ordering:      "score",
		Ascending:     true,
		Page:          1,
		Limit:         20,
	}.Query().Values()
	assert.Equal(t, url.Values{
		"user_id":         {"1"},
		"problem_id":      {"2"},
		"problem_list_id": {"3"},
		"contest_id":      {"4"},
		"score":           {"0"},
		"status":          {"finished"},
		"lang":            {"cpp17"},
		"compile_error":   {"false"},
		"ordering":        {"score"},
		"ascending":       {"true"},
		"offset":          {"0"},
		"limit":           {"20"},
	}, values)
}

func TestSubmissionQuery_AscendingRequiresOrdering(t *testing.T) {
	t.Parallel()
	values := SubmissionQuery{Ascending: true}.Query().Values()
	assert.Equal(t, "id", values.Get("ordering"))
	assert.Equal(t, "false", values.Get("ascending"))
}

func TestSubmissionsRequest(t *testing.T) {
	t.Parallel()
	api, transport := newMockedAPI(t)
	transport.RegisterResponder("GET", testHost+"/api/submissions/get", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "ascending=false&limit=50&offset=50&ordering=id", req.URL.RawQuery)
		return httpmock.NewStringResponse(200, `{
  "status": "success",
  "data": {
    "submissions": [
      {"id": 10, "created_at": "2024-03-01T10:20:30.123+02:00", "user_id": 1, "problem_id": 2, "language": "cpp17", "status": "finished", "score": "87.5", "score_precision": 2}
    ],
    "count": 51,
    "truncated_count": false,
    "users": {"1": {"id": 1, "name": "alice"}},
    "problems": {"2": {"id": 2, "name": "sum", "default_points": 10}}
  }
}`), nil
	})

	result, err := api.SubmissionsRequest(SubmissionQuery{Page: 2}).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51, result.Count)
	require.Len(t, result.Submissions, 1)
	sub := result.Submissions[0]
	assert.Equal(t, 10, sub.ID)
	assert.Equal(t, SubmissionStatusFinished, sub.Status)
	assert.True(t, decimal.RequireFromString("87.5").Equal(sub.Score))
	assert.Equal(t, "87.50", sub.ScoreString())
	assert.Equal(t, 2024, sub.CreatedAt.Year())
	assert.Equal(t, "alice", result.Users["1"].Name)
	assert.True(t, decimal.NewFromInt(10).Equal(result.Problems["2"].DefaultPoints))
}

func TestSubmissionsRequest_Error(t *testing.T) {
	t.Parallel()
	api, transport := newMockedAPI(t)
	transport.RegisterResponder("GET", testHost+"/api/submissions/get", httpmock.NewStringResponder(400, `{"status":"error","data":"Invalid ordering"}`))

	result, err := api.SubmissionsRequest(SubmissionQuery{Ordering: "unknown"}).Send(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Invalid ordering", err.Error())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.False(t, apiErr.IsTransport())
	assert.Empty(t, result.Submissions)
}

func TestSubmissionRequest(t *testing.T) {
	t.Parallel()
	api, transport := newMockedAPI(t)
	transport.RegisterResponder("GET", testHost+"/api/submissions/getByID", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "id=10", req.URL.RawQuery)
		return httpmock.NewStringResponse(200, `{
  "status": "success",
  "data": {
    "id": 10, "created_at": "2024-03-01T10:20:30Z", "user_id": 1, "problem_id": 2, "language": "cpp17", "status": "finished", "score": 100,
    "compile_error": false,
    "author": {"id": 1, "name": "alice"},
    "problem": {"id": 2, "name": "sum"},
    "subtests": [{"id": 1, "verdict": "ok", "time": 0.01, "memory": 1024, "percentage": 100, "test_id": 3}],
    "subtasks": [{"id": 5, "subtests": [1], "score": 100}],
    "truly_visible": true
  }
}`), nil
	})

	sub, err := api.SubmissionRequest(10).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, sub.ID)
	assert.Equal(t, "alice", sub.Author.Name)
	assert.Equal(t, "sum", sub.Problem.Name)
	require.NotNil(t, sub.CompileError)
	assert.False(t, *sub.CompileError)
	require.Len(t, sub.SubTests, 1)
	assert.Equal(t, 3, *sub.SubTests[0].TestID)
	require.Len(t, sub.SubTasks, 1)
	assert.Equal(t, []int{1}, sub.SubTasks[0].Subtests)
	assert.True(t, sub.CodeTrulyVisible)
}

func TestSubmissionRequest_TransportError(t *testing.T) {
	t.Parallel()
	api, transport := newMockedAPI(t)
	transport.RegisterResponder("GET", testHost+"/api/submissions/getByID", httpmock.NewErrorResponder(assert.AnError))

	_, err := api.SubmissionRequest(10).Send(context.Background())
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsTransport())
	assert.Equal(t, `request GET "https://kilonova.test/api/submissions/getByID?id=10" failed: `+assert.AnError.Error(), apiErr.Message)
}
