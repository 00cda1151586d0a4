package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"supportdesk/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func idOf(t *testing.T, w *httptest.ResponseRecorder, field string) int64 {
	t.Helper()
	v, ok := decode(t, w)[field].(float64)
	require.True(t, ok, "%s missing in %s", field, w.Body.String())
	return int64(v)
}

func TestChatRoute(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)

	w := ts.do(http.MethodPost, "/api/chat", `{"message":"Where is my order?","customer_name":"Ana"}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	convID := int64(body["conversation_id"].(float64))
	assert.NotEmpty(t, body["reply"])

	for _, bad := range []string{`{"message":"   "}`, `{"message":"hi","channel":"fax"}`, `{"message":`} {
		w = ts.do(http.MethodPost, "/api/chat", bad, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	// Another turn holds the conversation.
	acquired, _ := ts.locks.TryAcquire(convID, "held by another turn")
	require.True(t, acquired)
	stored, _ := ts.messages.ListByConversation(t.Context(), convID)

	w = ts.do(http.MethodPost, "/api/chat", fmt.Sprintf(`{"conversation_id":%d,"message":"second question"}`, convID), token)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	after, _ := ts.messages.ListByConversation(t.Context(), convID)
	assert.Len(t, after, len(stored), "web messages are not stored while busy")

	ts.locks.Release(convID)
	w = ts.do(http.MethodPost, "/api/chat", fmt.Sprintf(`{"conversation_id":%d,"message":"third question"}`, convID), token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/api/chat", `{"conversation_id":999,"message":"hello"}`, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/chat", `{"message":"hello","agent_id":77}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown agent")

	retired := &entities.Agent{Name: "Retired", ConfidenceThreshold: 0.5}
	require.NoError(t, ts.agents.Create(t.Context(), retired))
	w = ts.do(http.MethodPost, "/api/chat", fmt.Sprintf(`{"message":"hello","agent_id":%d}`, retired.ID), token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "inactive agent")
}

func TestWebWidgetRoute(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.do(http.MethodPost, "/webhook/web", `{"visitor_id":"v-1","name":"Ana","message":"Hello there"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	convID := idOf(t, w, "conversation_id")

	w = ts.do(http.MethodPost, "/webhook/web", fmt.Sprintf(`{"conversation_id":%d,"visitor_id":"v-1","message":"Any news?"}`, convID), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, convID, idOf(t, w, "conversation_id"))

	w = ts.do(http.MethodPost, "/webhook/web", fmt.Sprintf(`{"conversation_id":%d,"visitor_id":"v-2","message":"Let me in"}`, convID), "")
	assert.Equal(t, http.StatusNotFound, w.Code, "another visitor cannot continue the conversation")

	w = ts.do(http.MethodPost, "/webhook/web", fmt.Sprintf(`{"conversation_id":%d,"message":"Let me in"}`, convID), "")
	assert.Equal(t, http.StatusNotFound, w.Code, "a conversation id alone is not enough")

	tg := &entities.Conversation{CustomerID: 1, Channel: entities.ChannelTelegram, Status: entities.StatusOpen, ExternalRef: "v-1"}
	require.NoError(t, ts.conversations.Create(t.Context(), tg))
	w = ts.do(http.MethodPost, "/webhook/web", fmt.Sprintf(`{"conversation_id":%d,"visitor_id":"v-1","message":"hi"}`, tg.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code, "only web conversations")
	msgs, _ := ts.messages.ListByConversation(t.Context(), tg.ID)
	assert.Empty(t, msgs)

	w = ts.do(http.MethodPost, "/webhook/web", `{"visitor_id":"v-1","message":""}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/webhook/web", `{"visitor_id":"`+strings.Repeat("x", 129)+`","message":"hi"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerImportRoute(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)

	csvBody := "name,email,stage,value\nAna,ana@example.com,qualified,\"1,200.50\"\nBudi,,unknown,\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/customers/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := ts.send(req, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["imported"])

	req = httptest.NewRequest(http.MethodPost, "/api/customers/import", strings.NewReader("name\nCita\n"))
	req.Header.Set("Content-Type", "text/csv")
	w = ts.send(req, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["imported"])

	list, total, err := ts.customers.List(t.Context(), entities.CustomerFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	assert.Equal(t, entities.StageQualified, list[0].Stage)
	assert.Equal(t, int64(120050), list[0].ValueCents)
	assert.Equal(t, entities.StageLead, list[1].Stage, "unknown stage falls back to lead")

	for _, bad := range []string{"", "email\nx@example.com\n", "name\n", "name,value\nAna,lots\n"} {
		req = httptest.NewRequest(http.MethodPost, "/api/customers/import", strings.NewReader(bad))
		req.Header.Set("Content-Type", "text/csv")
		w = ts.send(req, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%q: %s", bad, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/customers/import", strings.NewReader("--x--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w = ts.send(req, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "multipart without a file")
}

func TestFunnelRoutes(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)

	w := ts.do(http.MethodPost, "/api/customers", `{"name":"Ana","stage":"lead","value_cents":5000}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ana := idOf(t, w, "id")
	w = ts.do(http.MethodPost, "/api/customers", `{"name":"Budi","stage":"proposal","value_cents":7000}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/api/funnel/board", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	columns := decode(t, w)["columns"].([]any)
	require.Len(t, columns, len(entities.Stages))
	for i, st := range entities.Stages {
		col := columns[i].(map[string]any)
		assert.Equal(t, string(st), col["stage"])
	}
	lead := columns[0].(map[string]any)
	assert.Equal(t, float64(1), lead["count"])
	assert.Equal(t, float64(5000), lead["value_cents"])

	w = ts.do(http.MethodPost, "/api/funnel/move", fmt.Sprintf(`{"customer_id":%d,"stage":"won","position":0}`, ana), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "won", decode(t, w)["stage"])
	assert.Equal(t, 1, ts.events.count(entities.EventCustomerStageChanged))

	w = ts.do(http.MethodPost, "/api/funnel/move", fmt.Sprintf(`{"customer_id":%d,"stage":"won","position":1}`, ana), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.events.count(entities.EventCustomerStageChanged), "reorder within a column is not a stage change")

	w = ts.do(http.MethodGet, "/api/funnel/board", "", token)
	columns = decode(t, w)["columns"].([]any)
	assert.Equal(t, float64(0), columns[0].(map[string]any)["count"])
	assert.Equal(t, float64(1), columns[4].(map[string]any)["count"])

	cases := []struct {
		body string
		want int
	}{
		{fmt.Sprintf(`{"customer_id":%d,"stage":"archived","position":0}`, ana), http.StatusBadRequest},
		{fmt.Sprintf(`{"customer_id":%d,"stage":"won","position":-1}`, ana), http.StatusBadRequest},
		{`{"stage":"won","position":0}`, http.StatusBadRequest},
		{`{"customer_id":999,"stage":"won","position":0}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		w = ts.do(http.MethodPost, "/api/funnel/move", tc.body, token)
		assert.Equal(t, tc.want, w.Code, tc.body)
	}
}

func TestConversationRoutes(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)
	messenger := &recordingMessenger{}
	ts.svc.Conversations.RegisterMessenger(entities.ChannelTelegram, messenger)

	w := ts.do(http.MethodPost, "/api/customers", `{"name":"Ana","email":"ana@example.com"}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := idOf(t, w, "id")

	w = ts.do(http.MethodPost, "/api/conversations", `{"channel":"telegram"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "customer_id is required")

	w = ts.do(http.MethodPost, "/api/conversations",
		fmt.Sprintf(`{"customer_id":%d,"channel":"telegram","external_ref":"42","subject":"Order"}`, customerID), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	convID := idOf(t, w, "id")
	assert.Equal(t, 1, ts.events.count(entities.EventConversationCreated))

	w = ts.do(http.MethodGet, "/api/conversations?channel=telegram", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
	w = ts.do(http.MethodGet, "/api/conversations?status=lost", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodGet, "/api/conversations?assignee_id=me", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/conversations/%d", convID)
	w = ts.do(http.MethodPut, path, `{"status":"resolved"}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "resolved", decode(t, w)["status"])
	assert.Equal(t, 1, ts.events.count(entities.EventConversationStatusChanged))
	w = ts.do(http.MethodPut, path, `{"status":"archived"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, path+"/messages", `{"content":"**On its way**"}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reply := decode(t, w)
	assert.Equal(t, true, reply["delivered"])
	msg := reply["message"].(map[string]any)
	assert.Equal(t, "agent", msg["sender"])
	assert.Contains(t, msg["html"], "<strong>On its way</strong>")
	assert.Equal(t, []string{"42:**On its way**"}, messenger.sent)

	w = ts.do(http.MethodPost, path+"/messages", `{"content":"  "}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPost, "/api/conversations/999/messages", `{"content":"hi"}`, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, path, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "Ana", detail["customer"].(map[string]any)["name"])
	assert.Len(t, detail["messages"], 1)
	assert.NotNil(t, detail["assignee_id"], "replying assigns the conversation")

	w = ts.do(http.MethodDelete, path, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, path, "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestRoutes(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)

	for _, path := range []string{"/api/rest/users", "/api/rest/pg_shadow"} {
		w := ts.do(http.MethodGet, path, "", token)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := ts.do(http.MethodPost, "/api/rest/users", `{"username":"x","password_hash":"y","role":"admin"}`, token)
	assert.Equal(t, http.StatusNotFound, w.Code, "accounts are not writable through the gateway")

	w = ts.do(http.MethodPost, "/api/rest/customers", `{"name":"Ana","stage":"lead"}`, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := idOf(t, w, "id")

	w = ts.do(http.MethodPost, "/api/rest/customers", `{"name":"Ana","id":5}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "id is read-only")

	w = ts.do(http.MethodGet, "/api/rest/customers?stage=eq.lead&order=name.desc&limit=10", "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Ana"`)

	for _, q := range []string{"?order=name.sideways", "?limit=0", "?offset=-1", "?password_hash=x"} {
		w = ts.do(http.MethodGet, "/api/rest/customers"+q, "", token)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	path := fmt.Sprintf("/api/rest/customers/%d", id)
	w = ts.do(http.MethodPatch, path, `{"notes":"vip"}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "vip", decode(t, w)["notes"])

	w = ts.do(http.MethodDelete, path, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodDelete, path, "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsOverviewRoute(t *testing.T) {
	ts := newTestServer(t, 100)
	token := ts.token(t, "operator", entities.RoleUser)

	w := ts.do(http.MethodGet, "/api/analytics/overview", "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(7), body["days"])
	assert.Equal(t, float64(4), body["total_conversations"])
	assert.Equal(t, float64(2), body["escalations"])
	assert.InDelta(t, 0.25, body["resolution_rate"], 1e-9)
	assert.Len(t, body["funnel"], len(entities.Stages))

	w = ts.do(http.MethodGet, "/api/analytics/overview?days=30", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(30), decode(t, w)["days"])
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ts.analytics.mu.Lock()
	since := ts.analytics.since
	ts.analytics.mu.Unlock()
	assert.True(t, since.Equal(today.AddDate(0, 0, -29)) || since.Equal(today.AddDate(0, 0, -28)), "window starts at UTC midnight: %s", since)

	for _, q := range []string{"?days=91", "?days=-1", "?days=abc"} {
		w = ts.do(http.MethodGet, "/api/analytics/overview"+q, "", token)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}
