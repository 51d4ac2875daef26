package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triagemd/internal/core"
	"triagemd/internal/retrieval"
	"triagemd/internal/session"
	"triagemd/pkg"
)

type scriptLLM struct {
	script []string
}

func (s *scriptLLM) Invoke(context.Context, pkg.PromptKind, string, []pkg.Turn) (string, error) {
	if len(s.script) == 0 {
		return "", fmt.Errorf("script exhausted")
	}
	out := s.script[0]
	s.script = s.script[1:]
	return out, nil
}

type listRanker struct{ names []string }

func (r *listRanker) Rank(context.Context, string, int) ([]retrieval.Candidate, error) {
	out := make([]retrieval.Candidate, len(r.names))
	for i, n := range r.names {
		out[i] = retrieval.Candidate{Name: n, Raw: "All Ages - Both - " + n + " - desc", Similarity: 0.9}
	}
	return out, nil
}

type oneChartStore struct{ chart *pkg.Flowchart }

func (s *oneChartStore) Load(name string) (*pkg.Flowchart, pkg.Graph, error) {
	if s.chart == nil || name != s.chart.Name {
		return nil, nil, fmt.Errorf("%w: %s", core.ErrNotFound, name)
	}
	return s.chart, pkg.Graph{"N1": {"N2", "I1"}, "N2": {"I1", "I1"}}, nil
}

func coughChart() *pkg.Flowchart {
	return &pkg.Flowchart{
		Name:  "Cough Flowchart",
		Entry: "N1",
		Nodes: map[string]pkg.Node{
			"N1": {ID: "N1", Kind: pkg.KindQuestion, Content: "Do you have a fever?"},
			"N2": {ID: "N2", Kind: pkg.KindQuestion, Content: "Any phlegm?"},
			"I1": {ID: "I1", Kind: pkg.KindInfo, Content: "Rest and fluids."},
		},
	}
}

func newTestServer(llmClient *scriptLLM, ranker core.Ranker, store core.ChartStore, msgCap int) *Server {
	log := zap.NewNop()
	sel := core.NewSelector(ranker, store, llmClient, 5, log)
	return NewServer(
		session.NewRegistry(time.Hour),
		core.NewNavigator(llmClient, nil, 3, log),
		sel, sel, nil, nil, msgCap, log,
	)
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/sessions",
		bytes.NewBufferString(`{"sex":"Female","age":"34"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, stdhttp.StatusCreated, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["session_id"])
	return resp["session_id"]
}

func postMessage(srv *Server, id, content string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(pkg.ChatRequest{Content: content})
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/sessions/"+id+"/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestFirstMessageSelectsAndAdvances(t *testing.T) {
	llmClient := &scriptLLM{script: []string{
		"Cough Flowchart", // pick
		"1",               // classify: branch to N2
		"Any phlegm?",     // generate
	}}
	srv := newTestServer(llmClient, &listRanker{names: []string{"Cough Flowchart"}}, &oneChartStore{chart: coughChart()}, 50)
	id := createSession(t, srv)

	w := postMessage(srv, id, "I have a bad cough")
	require.Equal(t, stdhttp.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Any phlegm?", resp.Reply)
	assert.Equal(t, "N2", resp.Node)
	assert.Equal(t, []string{"N1", "N2"}, resp.Path)
	assert.False(t, resp.Terminal)
}

func TestNoFlowchartFoundRefusesWithoutSession(t *testing.T) {
	llmClient := &scriptLLM{script: []string{"no flowchart available"}}
	srv := newTestServer(llmClient, &listRanker{names: []string{"Cough Flowchart"}}, &oneChartStore{}, 50)
	id := createSession(t, srv)

	w := postMessage(srv, id, "my car is making a strange noise")
	require.Equal(t, stdhttp.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, core.RefusalMessage, resp.Reply)
	assert.True(t, resp.Terminal)
	assert.Empty(t, resp.Node, "no navigator state was created")

	// The snapshot confirms no flowchart was attached.
	req := httptest.NewRequest(stdhttp.MethodGet, "/api/sessions/"+id, nil)
	get := httptest.NewRecorder()
	srv.ServeHTTP(get, req)
	require.Equal(t, stdhttp.StatusOK, get.Code)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &snap))
	assert.NotContains(t, snap, "flowchart")
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(&scriptLLM{}, &listRanker{}, &oneChartStore{}, 50)
	w := postMessage(srv, "deadbeef", "hello")
	assert.Equal(t, stdhttp.StatusNotFound, w.Code)
}

func TestMessageCap(t *testing.T) {
	llmClient := &scriptLLM{script: []string{
		"Cough Flowchart",
		"uncertain",
		"could you clarify?",
	}}
	srv := newTestServer(llmClient, &listRanker{names: []string{"Cough Flowchart"}}, &oneChartStore{chart: coughChart()}, 1)
	id := createSession(t, srv)

	require.Equal(t, stdhttp.StatusOK, postMessage(srv, id, "I have a cough").Code)
	w := postMessage(srv, id, "one more thing")
	require.Equal(t, stdhttp.StatusOK, w.Code)
	var resp pkg.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Capped)
	assert.Equal(t, core.CapMessage, resp.Reply)
}

func TestRetrieveFlowchartEndpoint(t *testing.T) {
	llmClient := &scriptLLM{script: []string{"Cough Flowchart"}}
	srv := newTestServer(llmClient, &listRanker{names: []string{"Cough Flowchart", "Fever Flowchart"}}, &oneChartStore{chart: coughChart()}, 50)

	body := bytes.NewBufferString(`{"sex":"Male","age":"41","opening_message":"coughing for a week"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/retrieve-flowchart", body)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, stdhttp.StatusOK, w.Code)
	var resp struct {
		Retrieved bool                   `json:"retrieved"`
		Flowchart pkg.FlowchartView      `json:"flowchart"`
		Similar   []pkg.FlowchartSummary `json:"similar_flowcharts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Retrieved)
	assert.Equal(t, "Cough Flowchart", resp.Flowchart.Name)
	assert.Len(t, resp.Flowchart.Nodes, 3)
	require.Len(t, resp.Similar, 1)
	assert.Equal(t, "Fever Flowchart", resp.Similar[0].Name)
}

func TestRetrieveFlowchartNotFound(t *testing.T) {
	llmClient := &scriptLLM{script: []string{"no flowchart available"}}
	srv := newTestServer(llmClient, &listRanker{names: []string{"Cough Flowchart"}}, &oneChartStore{}, 50)

	body := bytes.NewBufferString(`{"opening_message":"my laptop is broken"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/retrieve-flowchart", body)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, stdhttp.StatusNotFound, w.Code)
}
