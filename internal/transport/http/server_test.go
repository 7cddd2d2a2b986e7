package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"qzone-service/internal/app"
	"qzone-service/internal/auth"
	"qzone-service/internal/idgen"
	"qzone-service/internal/infra/memory"
	"qzone-service/internal/scoring"
	"qzone-service/internal/stats"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	store := memory.NewStore()
	alloc := idgen.New(store)
	agg := stats.New(store)
	authSvc := auth.NewService("test-secret", time.Hour)

	sheets := app.NewSheetService(store, alloc, agg, scoring.DefaultScheme()).WithClock(clock.Now)
	ranks := app.NewRankService(store, nil).WithClock(clock.Now)
	sheets.SetListener(ranks)

	handler := NewHandler(Services{
		Auth:      authSvc,
		Topics:    app.NewTopicService(store, alloc),
		Questions: app.NewQuestionService(store, alloc),
		Quizzes:   app.NewQuizService(store, alloc).WithClock(clock.Now),
		Sheets:    sheets,
		Ranks:     ranks,
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, clock
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func mintToken(t *testing.T, server *httptest.Server, userID int64) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	status := doJSON(t, server, http.MethodPost, "/auth/token", "", map[string]int64{"userId": userID}, &resp)
	if status != http.StatusOK {
		t.Fatalf("mint token: status %d", status)
	}
	return resp.AccessToken
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	server, _ := newTestServer(t)
	if status := doJSON(t, server, http.MethodGet, "/topics", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestFullQuizFlowOverREST(t *testing.T) {
	server, clock := newTestServer(t)
	owner := mintToken(t, server, 1)
	participant := mintToken(t, server, 2)

	var topic struct {
		ID int64 `json:"id"`
	}
	if status := doJSON(t, server, http.MethodPost, "/topics", owner, map[string]string{"name": "Math"}, &topic); status != http.StatusCreated {
		t.Fatalf("create topic: status %d", status)
	}

	var question struct {
		ID int64 `json:"id"`
	}
	status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/topics/%d/questions", topic.ID), owner, map[string]interface{}{
		"text":             "What is 2 + 2?",
		"correctOption":    "4",
		"incorrectOptions": []string{"3", "5", "6", "7"},
		"difficulty":       "easy",
	}, &question)
	if status != http.StatusCreated {
		t.Fatalf("create question: status %d", status)
	}

	var quiz struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	}
	if status := doJSON(t, server, http.MethodPost, "/quizzes", owner, map[string]int64{"topicId": topic.ID}, &quiz); status != http.StatusCreated {
		t.Fatalf("create quiz: status %d", status)
	}

	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/questions", quiz.ID), owner, map[string]int64{"questionId": question.ID}, nil); status != http.StatusNoContent {
		t.Fatalf("add question: status %d", status)
	}
	start := clock.Now().Add(time.Hour)
	if status := doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/start", quiz.ID), owner, map[string]time.Time{"startAt": start}, nil); status != http.StatusNoContent {
		t.Fatalf("set start: status %d", status)
	}
	if status := doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/visibility", quiz.ID), owner, map[string]bool{"public": true}, nil); status != http.StatusNoContent {
		t.Fatalf("publish: status %d", status)
	}

	// Into the middle of the window.
	clock.Advance(90 * time.Minute)

	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/sheet", quiz.ID), participant, nil, nil); status != http.StatusOK {
		t.Fatalf("open sheet: status %d", status)
	}
	status = doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/sheet/answers/%d", quiz.ID, question.ID), participant, map[string]string{"option": "4"}, nil)
	if status != http.StatusNoContent {
		t.Fatalf("give answer: status %d", status)
	}

	var result struct {
		ObtainedMarks int `json:"obtainedMarks"`
		Percentage    int `json:"percentage"`
	}
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/sheet/submit", quiz.ID), participant, nil, &result); status != http.StatusCreated {
		t.Fatalf("submit: status %d", status)
	}
	if result.ObtainedMarks != 5 || result.Percentage != 100 {
		t.Fatalf("expected 5 marks and 100%%, got %d and %d", result.ObtainedMarks, result.Percentage)
	}

	// One-shot: the second submit conflicts.
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/sheet/submit", quiz.ID), participant, nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on resubmit, got %d", status)
	}

	var ranks []struct {
		ParticipantID int64 `json:"participantId"`
		ObtainedMarks int   `json:"obtainedMarks"`
	}
	if status := doJSON(t, server, http.MethodGet, fmt.Sprintf("/quizzes/%d/ranks", quiz.ID), owner, nil, &ranks); status != http.StatusOK {
		t.Fatalf("rank list: status %d", status)
	}
	if len(ranks) != 1 || ranks[0].ParticipantID != 2 || ranks[0].ObtainedMarks != 5 {
		t.Fatalf("unexpected rank list: %+v", ranks)
	}
}

func TestNonOwnerCannotEditQuiz(t *testing.T) {
	server, _ := newTestServer(t)
	owner := mintToken(t, server, 1)
	other := mintToken(t, server, 2)

	var topic struct {
		ID int64 `json:"id"`
	}
	doJSON(t, server, http.MethodPost, "/topics", owner, map[string]string{"name": "Math"}, &topic)
	var quiz struct {
		ID int64 `json:"id"`
	}
	doJSON(t, server, http.MethodPost, "/quizzes", owner, map[string]int64{"topicId": topic.ID}, &quiz)

	status := doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/name", quiz.ID), other, map[string]string{"name": "Stolen"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
}

func TestRankFeedPushesInitialList(t *testing.T) {
	server, clock := newTestServer(t)
	owner := mintToken(t, server, 1)
	participant := mintToken(t, server, 2)

	var topic struct {
		ID int64 `json:"id"`
	}
	doJSON(t, server, http.MethodPost, "/topics", owner, map[string]string{"name": "Math"}, &topic)
	var question struct {
		ID int64 `json:"id"`
	}
	doJSON(t, server, http.MethodPost, fmt.Sprintf("/topics/%d/questions", topic.ID), owner, map[string]interface{}{
		"text":             "What is 2 + 2?",
		"correctOption":    "4",
		"incorrectOptions": []string{"3", "5", "6", "7"},
	}, &question)
	var quiz struct {
		ID int64 `json:"id"`
	}
	doJSON(t, server, http.MethodPost, "/quizzes", owner, map[string]int64{"topicId": topic.ID}, &quiz)
	doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/questions", quiz.ID), owner, map[string]int64{"questionId": question.ID}, nil)
	doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/start", quiz.ID), owner, map[string]time.Time{"startAt": clock.Now().Add(time.Hour)}, nil)
	doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/visibility", quiz.ID), owner, map[string]bool{"public": true}, nil)
	clock.Advance(90 * time.Minute)

	doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/sheet", quiz.ID), participant, nil, nil)
	doJSON(t, server, http.MethodPut, fmt.Sprintf("/quizzes/%d/sheet/answers/%d", quiz.ID, question.ID), participant, map[string]string{"option": "4"}, nil)
	doJSON(t, server, http.MethodPost, fmt.Sprintf("/quizzes/%d/sheet/submit", quiz.ID), participant, nil, nil)

	u := "ws" + server.URL[len("http"):] + fmt.Sprintf("/ws/ranks?quizId=%d&token=", quiz.ID) + owner
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg struct {
		Type    string `json:"type"`
		Payload []struct {
			ParticipantID int64 `json:"participantId"`
		} `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "rankList" {
		t.Fatalf("expected rankList, got %s", msg.Type)
	}
	if len(msg.Payload) != 1 || msg.Payload[0].ParticipantID != 2 {
		t.Fatalf("unexpected payload: %+v", msg.Payload)
	}
}

