package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/edulane/assessd/internal/assess"
	"github.com/edulane/assessd/internal/auth"
	"github.com/edulane/assessd/internal/grading"
	"github.com/edulane/assessd/internal/roster"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.AuthService) {
	t.Helper()
	svc := assess.NewService(assess.NewMemoryStore(), grading.NewEngine(), roster.Static{})
	authSvc := auth.NewAuthService("test-secret", "admin", "", true)

	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		Mount(pr, svc)
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, authSvc
}

func bearer(t *testing.T, a *auth.AuthService, sub, role string) string {
	t.Helper()
	tok, err := a.IssueJWT(sub, role, "org1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func call(t *testing.T, ts *httptest.Server, token, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestLearnerFlowOverHTTP(t *testing.T) {
	ts, authSvc := newTestServer(t)
	instr := bearer(t, authSvc, "teach1", auth.RoleInstructor)
	student := bearer(t, authSvc, "stu1", auth.RoleLearner)

	var q struct {
		ID string `json:"id"`
	}
	status := call(t, ts, instr, "POST", "/questions", map[string]any{
		"text": "2+2?", "type": "single_choice", "marks": 5,
		"options": []map[string]string{
			{"id": "a", "text": "4"}, {"id": "b", "text": "5"},
		},
		"answer_key": []string{"a"},
	}, &q)
	if status != http.StatusCreated {
		t.Fatalf("create question: status %d", status)
	}

	var z struct {
		ID string `json:"id"`
	}
	if s := call(t, ts, instr, "POST", "/quizzes", map[string]any{
		"title": "arith", "duration_min": 30, "pass_marks": 5,
	}, &z); s != http.StatusCreated {
		t.Fatalf("create quiz: status %d", s)
	}
	if s := call(t, ts, instr, "POST", "/quizzes/"+z.ID+"/questions",
		map[string]string{"question_id": q.ID}, nil); s != http.StatusOK {
		t.Fatalf("add question: status %d", s)
	}
	if s := call(t, ts, instr, "POST", "/quizzes/"+z.ID+"/publish", nil, nil); s != http.StatusOK {
		t.Fatalf("publish: status %d", s)
	}

	var asg struct {
		ID    string `json:"id"`
		DueAt int64  `json:"due_at"`
	}
	if s := call(t, ts, instr, "POST", "/assignments", map[string]any{
		"quiz_id": z.ID, "due_at": 4102444800, "max_attempts": 1,
		"recipient": map[string]string{"type": "learner", "id": "stu1"},
	}, &asg); s != http.StatusCreated {
		t.Fatalf("create assignment: status %d", s)
	}

	var at struct {
		ID string `json:"id"`
	}
	if s := call(t, ts, student, "POST", "/attempts",
		map[string]string{"assignment_id": asg.ID}, &at); s != http.StatusCreated {
		t.Fatalf("start attempt: status %d", s)
	}

	// the learner payload must not leak keys
	var qs []map[string]any
	if s := call(t, ts, student, "GET", "/attempts/"+at.ID+"/questions", nil, &qs); s != http.StatusOK {
		t.Fatalf("attempt questions: status %d", s)
	}
	if len(qs) != 1 {
		t.Fatalf("got %d questions, want 1", len(qs))
	}
	if _, leaked := qs[0]["answer_key"]; leaked {
		t.Fatal("answer_key leaked to learner")
	}

	if s := call(t, ts, student, "PUT",
		fmt.Sprintf("/attempts/%s/answers/%s", at.ID, q.ID),
		map[string]any{"selected": []string{"a"}}, nil); s != http.StatusOK {
		t.Fatalf("save answer: status %d", s)
	}

	var done struct {
		Status string `json:"status"`
		Result struct {
			Score  float64 `json:"score"`
			Passed *bool   `json:"passed"`
		} `json:"result"`
	}
	if s := call(t, ts, student, "POST", "/attempts/"+at.ID+"/submit", nil, &done); s != http.StatusOK {
		t.Fatalf("submit: status %d", s)
	}
	if done.Status != "graded" || done.Result.Score != 5 || done.Result.Passed == nil || !*done.Result.Passed {
		t.Fatalf("unexpected final attempt: %+v", done)
	}
}

func TestStartConflictCarriesAttemptID(t *testing.T) {
	ts, authSvc := newTestServer(t)
	instr := bearer(t, authSvc, "teach1", auth.RoleInstructor)
	student := bearer(t, authSvc, "stu1", auth.RoleLearner)

	var q, z, asg struct {
		ID string `json:"id"`
	}
	call(t, ts, instr, "POST", "/questions", map[string]any{
		"text": "t", "type": "free_text", "marks": 5,
	}, &q)
	call(t, ts, instr, "POST", "/quizzes", map[string]any{
		"title": "t", "duration_min": 30,
	}, &z)
	call(t, ts, instr, "POST", "/quizzes/"+z.ID+"/questions", map[string]string{"question_id": q.ID}, nil)
	call(t, ts, instr, "POST", "/quizzes/"+z.ID+"/publish", nil, nil)
	call(t, ts, instr, "POST", "/assignments", map[string]any{
		"quiz_id": z.ID, "due_at": 4102444800, "max_attempts": 3,
		"recipient": map[string]string{"type": "learner", "id": "stu1"},
	}, &asg)

	var first struct {
		ID string `json:"id"`
	}
	if s := call(t, ts, student, "POST", "/attempts",
		map[string]string{"assignment_id": asg.ID}, &first); s != http.StatusCreated {
		t.Fatalf("first start: status %d", s)
	}
	var conflict struct {
		Error     string `json:"error"`
		AttemptID string `json:"attempt_id"`
	}
	if s := call(t, ts, student, "POST", "/attempts",
		map[string]string{"assignment_id": asg.ID}, &conflict); s != http.StatusConflict {
		t.Fatalf("second start: status %d, want 409", s)
	}
	if conflict.Error != "attempt_already_active" || conflict.AttemptID != first.ID {
		t.Fatalf("conflict body = %+v, want attempt_already_active with %q", conflict, first.ID)
	}
}

func TestRoleGates(t *testing.T) {
	ts, authSvc := newTestServer(t)
	student := bearer(t, authSvc, "stu1", auth.RoleLearner)

	if s := call(t, ts, student, "POST", "/questions", map[string]any{
		"text": "t", "type": "free_text", "marks": 1,
	}, nil); s != http.StatusForbidden {
		t.Fatalf("learner creating question: status %d, want 403", s)
	}
	if s := call(t, ts, student, "POST", "/attempts/whatever/force-end", nil, nil); s != http.StatusForbidden {
		t.Fatalf("learner force-end: status %d, want 403", s)
	}

	req, _ := http.NewRequest("GET", ts.URL+"/questions", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}
}
