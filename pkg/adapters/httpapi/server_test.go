package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/weft"
	"github.com/kursio/weft/pkg/adapters/httpapi"
	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm/llmtest"
)

func newTestServer(t *testing.T, fake *llmtest.Fake) *httptest.Server {
	t.Helper()

	engine := weft.New(fake)
	engine.Graphs().Register("forklift", domain.NewGraph(
		[]domain.Node{
			{ID: "s1", Kind: domain.KindStart},
			{ID: "p1", Kind: domain.KindPrompt, Attrs: map[string]string{
				domain.AttrInitialMessage: "Greet the learner",
				domain.AttrPurpose:        "confirm the learner is ready",
			}},
			{ID: "sec1", Kind: domain.KindSection},
		},
		[]domain.Edge{
			{Source: "s1", Target: "p1"},
			{Source: "p1", Target: "sec1", Label: "ready"},
		},
	))

	srv := httptest.NewServer(httpapi.NewHandler(engine))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSessionLifecycle(t *testing.T) {
	fake := llmtest.New().
		Reply("Merhaba! Hazır mısın?").
		Reply("Harika!").
		Reply("completed")
	srv := newTestServer(t, fake)

	// Create
	resp := postJSON(t, srv.URL+"/v1/sessions", map[string]any{
		"graph": "forklift",
		"meta":  map[string]string{"title": "Forklift Safety"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		SessionID string             `json:"session_id"`
		Result    *domain.StepResult `json:"result"`
	}](t, resp)
	require.NotEmpty(t, created.SessionID)
	assert.True(t, created.Result.WaitingForResponse)

	base := srv.URL + "/v1/sessions/" + created.SessionID

	// Step
	resp = postJSON(t, base+"/step", map[string]any{"graph": "forklift", "message": "Hazır!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[domain.StepResult](t, resp)
	assert.Equal(t, domain.ActionPlay, res.Action)

	// Inspect
	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[domain.State](t, resp)
	assert.Equal(t, "sec1", st.CurrentNodeID)

	// Analyze
	resp, err = http.Get(base + "/analysis?graph=forklift")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Delete
	req, err := http.NewRequest(http.MethodDelete, base+"/", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStepUnknownSession(t *testing.T) {
	srv := newTestServer(t, llmtest.New())

	resp := postJSON(t, srv.URL+"/v1/sessions/ghost/step", map[string]any{
		"graph":   "forklift",
		"message": "merhaba",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.NotEmpty(t, body["error"])
}

func TestMetricsExposed(t *testing.T) {
	fake := llmtest.New().Reply("Merhaba!")
	srv := newTestServer(t, fake)

	resp := postJSON(t, srv.URL+"/v1/sessions", map[string]any{"graph": "forklift"})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "weft_steps_total")
	assert.Contains(t, string(raw), "weft_sessions_started_total")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, llmtest.New())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
