package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/sink"
	"github.com/terra-clan/interview-engine/internal/storage"
)

const testAPIKey = "sk_test_1234567890"

type testSource struct{ n int }

func (s *testSource) NextQuestion(_ context.Context, _ *models.Session) (*models.Question, error) {
	s.n++
	return &models.Question{ID: fmt.Sprintf("q%d", s.n), Text: fmt.Sprintf("question %d", s.n), Kind: models.KindQA}, nil
}

func (s *testSource) ScenarioQuestion(_ context.Context, _ *models.Session) (*models.Question, error) {
	return &models.Question{ID: "scenario", Text: "the scenario", Kind: models.KindScenario}, nil
}

func (s *testSource) ReflectionQuestion(_ context.Context, _ *models.Session) (*models.Question, error) {
	return &models.Question{ID: "reflection", Text: "the reflection", Kind: models.KindReflection}, nil
}

type testScorer struct{}

func (testScorer) Evaluate(_ context.Context, _ *models.Question, _ string, _ *models.Session) (*models.ScoredResponse, error) {
	scores := make(map[string]float64)
	for _, dim := range models.Dimensions {
		scores[dim] = 4.0
	}
	return &models.ScoredResponse{Scores: scores}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryRepository) {
	t.Helper()

	repo := storage.NewMemoryRepository()
	repo.AddClient(&models.ApiClient{
		ID:          1,
		Name:        "test-orchestrator",
		ApiKey:      testAPIKey,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		Permissions: []string{"interviews:*"},
	})

	mgr := interview.NewManager(repo, sink.NewRegistry(), &testSource{}, testScorer{}, nil,
		config.InterviewConfig{TargetQuestions: 2, IdleTimeout: 30 * time.Minute})

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, mgr, sink.NewRegistry(), repo)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, repo
}

func doJSON(t *testing.T, method, url, apiKey string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
	}
	return resp, envelope
}

func dataField(t *testing.T, envelope map[string]json.RawMessage, out interface{}) {
	t.Helper()
	raw, ok := envelope["data"]
	if !ok {
		t.Fatalf("envelope has no data field: %v", envelope)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("failed to unmarshal data: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "GET", ts.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", ts.URL+"/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready status = %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "POST", ts.URL+"/api/v1/interviews", "", models.CreateInterviewRequest{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated create: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", ts.URL+"/api/v1/interviews", "sk_wrong_key_000", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad key list: status = %d, want 401", resp.StatusCode)
	}
}

func TestPermissionEnforcement(t *testing.T) {
	ts, repo := newTestServer(t)

	repo.AddClient(&models.ApiClient{
		ID:          2,
		Name:        "read-only",
		ApiKey:      "sk_readonly_12345",
		IsActive:    true,
		Permissions: []string{"interviews:read"},
	})

	resp, _ := doJSON(t, "GET", ts.URL+"/api/v1/interviews", "sk_readonly_12345", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read with read permission: status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, "POST", ts.URL+"/api/v1/interviews", "sk_readonly_12345", models.CreateInterviewRequest{})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("write with read-only key: status = %d, want 403", resp.StatusCode)
	}
}

func TestCreateAndJoinFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, env := doJSON(t, "POST", ts.URL+"/api/v1/interviews", testAPIKey, models.CreateInterviewRequest{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var created models.CreateInterviewResponse
	dataField(t, env, &created)

	if created.Token == "" || created.ID == "" {
		t.Fatalf("create response missing id or token: %+v", created)
	}
	if created.JoinURL != "/join/"+created.Token {
		t.Errorf("join URL = %q", created.JoinURL)
	}
	if created.Phase != models.PhaseQA {
		t.Errorf("phase after create = %s, want qa", created.Phase)
	}

	// Candidate joins with the token; no API key needed.
	resp, env = doJSON(t, "GET", ts.URL+created.JoinURL, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	var join models.JoinResponse
	dataField(t, env, &join)
	if !strings.Contains(join.Message, "Welcome") {
		t.Errorf("join message should carry the opening prompt, got %q", join.Message)
	}
	if join.Progress == nil || join.Progress.TotalEstimate != 4 {
		t.Errorf("progress = %+v, want total 4 (2 qa + scenario + reflection)", join.Progress)
	}
}

func TestMessageFlowToCompletion(t *testing.T) {
	ts, _ := newTestServer(t)

	_, env := doJSON(t, "POST", ts.URL+"/api/v1/interviews", testAPIKey, models.CreateInterviewRequest{})
	var created models.CreateInterviewResponse
	dataField(t, env, &created)

	msgURL := ts.URL + "/join/" + created.Token + "/message"

	// Report is not ready mid-interview.
	resp, _ := doJSON(t, "GET", ts.URL+"/join/"+created.Token+"/report", "", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("report before completion: status = %d, want 409", resp.StatusCode)
	}

	// 2 qa answers, scenario, reflection.
	var last models.MessageResponse
	for _, answer := range []string{"a1", "a2", "scenario answer", "reflection answer"} {
		resp, env = doJSON(t, "POST", msgURL, "", models.MessageRequest{Text: answer})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("message %q status = %d", answer, resp.StatusCode)
		}
		dataField(t, env, &last)
	}

	if !last.Complete {
		t.Fatalf("expected completion after reflection answer, got %+v", last)
	}
	if last.Phase != models.PhaseClosing {
		t.Errorf("final phase = %s, want closing", last.Phase)
	}

	// JSON report via the candidate surface.
	resp, env = doJSON(t, "GET", ts.URL+"/join/"+created.Token+"/report", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", resp.StatusCode)
	}
	var rep models.FeedbackReport
	dataField(t, env, &rep)
	if rep.ReadinessScore != 80 {
		t.Errorf("readiness = %d, want 80 for uniform 4.0 scoring", rep.ReadinessScore)
	}

	// Markdown rendering via the admin surface.
	req, _ := http.NewRequest("GET", ts.URL+"/api/v1/interviews/"+created.ID+"/report?format=markdown", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	mdResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("markdown report request failed: %v", err)
	}
	defer mdResp.Body.Close()
	if ct := mdResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("markdown content type = %q", ct)
	}
}

func TestEmptyMessageReprompts(t *testing.T) {
	ts, _ := newTestServer(t)

	_, env := doJSON(t, "POST", ts.URL+"/api/v1/interviews", testAPIKey, models.CreateInterviewRequest{})
	var created models.CreateInterviewResponse
	dataField(t, env, &created)

	resp, env := doJSON(t, "POST", ts.URL+"/join/"+created.Token+"/message", "", models.MessageRequest{Text: "   "})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var msg models.MessageResponse
	dataField(t, env, &msg)
	if !strings.Contains(msg.Message, "Please provide a response") {
		t.Errorf("expected reprompt, got %q", msg.Message)
	}
	if msg.Progress.CompletedCount != 0 {
		t.Errorf("blank input advanced progress to %d", msg.Progress.CompletedCount)
	}
}

func TestEndInterviewEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	_, env := doJSON(t, "POST", ts.URL+"/api/v1/interviews", testAPIKey, models.CreateInterviewRequest{})
	var created models.CreateInterviewResponse
	dataField(t, env, &created)

	resp, env := doJSON(t, "POST", ts.URL+"/api/v1/interviews/"+created.ID+"/end", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", resp.StatusCode)
	}
	var msg models.MessageResponse
	dataField(t, env, &msg)
	if msg.Phase != models.PhaseClosing {
		t.Errorf("phase after end = %s", msg.Phase)
	}

	// Report now exists with the participation floor.
	resp, env = doJSON(t, "GET", ts.URL+"/api/v1/interviews/"+created.ID+"/report", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", resp.StatusCode)
	}
	var rep models.FeedbackReport
	dataField(t, env, &rep)
	if rep.ReadinessScore != 30 {
		t.Errorf("readiness = %d, want participation floor 30", rep.ReadinessScore)
	}
}

func TestUnknownTokenAndID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "GET", ts.URL+"/join/deadbeef", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown token status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", ts.URL+"/api/v1/interviews/no-such-id", testAPIKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
}

func TestListInterviews(t *testing.T) {
	ts, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		doJSON(t, "POST", ts.URL+"/api/v1/interviews", testAPIKey, models.CreateInterviewRequest{})
	}

	resp, env := doJSON(t, "GET", ts.URL+"/api/v1/interviews?phase=qa", testAPIKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var out struct {
		Interviews []*models.Session `json:"interviews"`
		Total      int               `json:"total"`
	}
	dataField(t, env, &out)
	if out.Total != 3 {
		t.Errorf("total = %d, want 3", out.Total)
	}

	resp, _ = doJSON(t, "GET", ts.URL+"/api/v1/interviews?phase=bogus", testAPIKey, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus phase filter status = %d, want 400", resp.StatusCode)
	}
}
