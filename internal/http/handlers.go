// Package http exposes the triage interview over a small REST API. Routing
// is done by hand in ServeHTTP to keep dependencies light.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"triagemd/internal/core"
	"triagemd/internal/db"
	"triagemd/internal/session"
	"triagemd/pkg"
)

// Server bundles the dependencies the handlers need. It implements
// http.Handler so it can be passed straight to http.ListenAndServe.
type Server struct {
	Registry    *session.Registry
	Navigator   *core.Navigator
	Selector    *core.Selector
	APISelector *core.Selector
	Repo        *db.Repository
	Notifier    *db.Notifier
	MessageCap  int
	Log         *zap.Logger
}

// NewServer constructs a Server. selector drives interactive interviews;
// apiSelector (with its larger candidate set) serves the retrieval endpoint.
func NewServer(reg *session.Registry, nav *core.Navigator, selector, apiSelector *core.Selector,
	repo *db.Repository, notifier *db.Notifier, messageCap int, log *zap.Logger) *Server {
	return &Server{
		Registry:    reg,
		Navigator:   nav,
		Selector:    selector,
		APISelector: apiSelector,
		Repo:        repo,
		Notifier:    notifier,
		MessageCap:  messageCap,
		Log:         log,
	}
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "triagemd"})
	case path == "/api/sessions" && r.Method == http.MethodPost:
		s.handleCreateSession(w, r)
	case strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/messages") && r.Method == http.MethodPost:
		parts := strings.Split(path, "/")
		if len(parts) != 5 {
			http.NotFound(w, r)
			return
		}
		s.handlePostMessage(w, r, parts[3])
	case strings.HasPrefix(path, "/api/sessions/") && r.Method == http.MethodGet:
		parts := strings.Split(path, "/")
		if len(parts) != 4 {
			http.NotFound(w, r)
			return
		}
		s.handleGetSession(w, r, parts[3])
	case path == "/api/retrieve-flowchart" && r.Method == http.MethodPost:
		s.handleRetrieveFlowchart(w, r)
	case path == "/api/escalations/stream" && r.Method == http.MethodGet:
		s.handleEscalationStream(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleCreateSession starts a new interview from the patient's demographics
// and returns the session id plus the fixed welcome message.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var demo pkg.Demographics
	if err := json.NewDecoder(r.Body).Decode(&demo); err != nil && err != io.EOF {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	id := s.Registry.Create(demo)
	if s.Repo != nil {
		if err := s.Repo.CreateSession(r.Context(), id, demo); err != nil {
			s.Log.Warn("session insert failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": id,
		"welcome":    core.WelcomeMessage,
	})
}

// handlePostMessage processes one patient turn. The first message of a
// session (and the first after a flowchart switch) goes through flowchart
// selection before the navigator runs.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, id string) {
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	var resp pkg.ChatResponse
	status := http.StatusOK
	err := s.Registry.Do(id, func(st *session.State) error {
		ctx := r.Context()
		st.Messages++
		if st.Messages > s.MessageCap {
			resp = pkg.ChatResponse{Reply: core.CapMessage, PromptKind: pkg.PromptGuidance.String(), Terminal: true, Capped: true}
			return nil
		}

		if !st.Session.Retrieved() || st.AwaitingReselect {
			sel, err := s.Selector.Select(ctx, content, st.Session.Demographics)
			switch {
			case errors.Is(err, core.ErrNotFound):
				// Fixed refusal; the navigator state machine is never
				// entered for this concern.
				s.Log.Info("no flowchart for concern", zap.String("session_id", id), zap.Error(err))
				s.recordExchange(ctx, id, content, core.RefusalMessage)
				resp = pkg.ChatResponse{Reply: core.RefusalMessage, PromptKind: pkg.PromptGuidance.String(), Terminal: true}
				return nil
			case err != nil:
				status = http.StatusBadGateway
				return err
			}
			st.Session.AttachFlowchart(content, sel.Flowchart, sel.Graph)
			st.AwaitingReselect = false
			if s.Repo != nil {
				if err := s.Repo.SetFlowchart(ctx, id, sel.Name); err != nil {
					s.Log.Warn("flowchart update failed", zap.String("session_id", id), zap.Error(err))
				}
			}
		}

		out, err := s.Navigator.Advance(ctx, st.Session, content)
		if err != nil {
			status = http.StatusBadGateway
			return err
		}
		if out.Switched {
			st.AwaitingReselect = true
		} else if out.Terminal && !st.Done {
			st.Done = true
			s.closeSession(ctx, id, out.Escalated)
		}
		resp = pkg.ChatResponse{
			Reply:      out.Reply,
			Node:       st.Session.CurrentNode,
			Path:       append([]string(nil), st.Session.Path...),
			PromptKind: out.PromptKind.String(),
			Terminal:   out.Terminal,
		}
		return nil
	})
	if errors.Is(err, session.ErrUnknown) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.Log.Error("turn failed", zap.String("session_id", id), zap.Error(err))
		http.Error(w, "triage collaborator unavailable", status)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetSession returns the navigation snapshot plus the stored
// transcript.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	snapshot := map[string]interface{}{"session_id": id}
	err := s.Registry.Do(id, func(st *session.State) error {
		if st.Session.Retrieved() {
			snapshot["flowchart"] = st.Session.Flowchart.Name
			snapshot["node"] = st.Session.CurrentNode
			snapshot["path"] = append([]string(nil), st.Session.Path...)
		}
		snapshot["done"] = st.Done
		return nil
	})
	if errors.Is(err, session.ErrUnknown) {
		http.NotFound(w, r)
		return
	}
	if s.Repo != nil {
		transcript, err := s.Repo.GetTranscript(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		snapshot["transcript"] = transcript
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleRetrieveFlowchart resolves an opening concern to a full flowchart
// plus alternate recommendations, without starting an interview. Serves
// clients that render the chart or offer the patient a choice.
func (s *Server) handleRetrieveFlowchart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sex            string `json:"sex"`
		Age            string `json:"age"`
		OpeningMessage string `json:"opening_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	sel, err := s.APISelector.Select(r.Context(), req.OpeningMessage, pkg.Demographics{Sex: req.Sex, Age: req.Age})
	if errors.Is(err, core.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"retrieved": false,
			"detail":    "No relevant flowchart available for this symptom description.",
		})
		return
	}
	if err != nil {
		s.Log.Error("retrieval failed", zap.Error(err))
		http.Error(w, "triage collaborator unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flowchart":          flowchartView(sel),
		"similar_flowcharts": sel.Alternates,
		"retrieved":          true,
	})
}

// handleEscalationStream streams escalated session ids as SSE events for
// staff dashboards.
func (s *Server) handleEscalationStream(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil {
		http.Error(w, "notifications disabled", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, err := s.Notifier.Listen(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	flusher.Flush()
	for sessionID := range ch {
		payload, _ := json.Marshal(map[string]string{"type": "escalation", "session_id": sessionID})
		if _, err := io.WriteString(w, "data: "+string(payload)+"\n\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) closeSession(ctx context.Context, id string, escalated bool) {
	if s.Repo != nil {
		if err := s.Repo.CloseSession(ctx, id, escalated); err != nil {
			s.Log.Warn("session close failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	if escalated && s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, id); err != nil {
			s.Log.Warn("escalation notify failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// recordExchange writes a patient/assistant pair straight to the transcript
// for turns that never reach the navigator.
func (s *Server) recordExchange(ctx context.Context, id, patient, assistant string) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Append(ctx, id, pkg.Turn{Speaker: pkg.SpeakerPatient, Text: patient}); err != nil {
		s.Log.Warn("transcript append failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	if err := s.Repo.Append(ctx, id, pkg.Turn{Speaker: pkg.SpeakerAssistant, Text: assistant}); err != nil {
		s.Log.Warn("transcript append failed", zap.String("session_id", id), zap.Error(err))
	}
}

func flowchartView(sel *core.Selection) pkg.FlowchartView {
	view := pkg.FlowchartView{
		Name:  sel.Flowchart.Name,
		Entry: sel.Flowchart.Entry,
		Edges: map[string][]string{},
	}
	for _, n := range sel.Flowchart.Nodes {
		view.Nodes = append(view.Nodes, n)
	}
	for from, targets := range sel.Graph {
		view.Edges[from] = append([]string(nil), targets...)
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
