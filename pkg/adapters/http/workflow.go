package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
)

// GetStatus handles GET /api/v1/status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := s.studio.Status()
	resp := StatusResponse{
		Status:         "ok",
		WorkflowStatus: "not_loaded",
		RootNode:       "None",
	}
	if st.Loaded {
		resp.WorkflowStatus = "loaded"
		resp.RootNode = st.RootNode
		resp.Generation = st.Generation
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// CompileWorkflow handles POST /api/v1/workflow/compile.
func (s *Server) CompileWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGraphBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "graph export is too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	wf, err := s.studio.Compile(r.Context(), data)
	if err != nil {
		s.logger.Warn("compile rejected", "err", err)
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CompileResponse{
		EntryPoint: wf.EntryPoint().Name(),
		Nodes:      wf.Names(),
		Generation: wf.Generation,
	})
}

func (s *Server) workflow(w http.ResponseWriter) (*domain.Workflow, bool) {
	wf := s.studio.Workflow()
	if wf == nil {
		s.fail(w, domain.ErrNoWorkflow)
		return nil, false
	}
	return wf, true
}

// GetGraph handles GET /api/v1/workflow/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.workflow(w)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, graph.BuildLayout(wf))
}

// ExportWorkflow handles GET /api/v1/workflow/export.
func (s *Server) ExportWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.workflow(w)
	if !ok {
		return
	}
	out, err := graph.ExportYAML(wf)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="workflow.yaml"`)
	_, _ = w.Write(out)
}

// GetMermaid handles GET /api/v1/workflow/mermaid. With ?session=<id>, nodes that hold
// history in that session are highlighted.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request, params GetMermaidParams) {
	wf, ok := s.workflow(w)
	if !ok {
		return
	}

	var overlay *graph.GraphOverlay
	if params.Session != nil && *params.Session != "" {
		nodes, err := s.studio.SessionNodes(r.Context(), *params.Session)
		if err != nil {
			s.fail(w, err)
			return
		}
		overlay = &graph.GraphOverlay{VisitedNodes: nodes}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(wf, overlay)))
}
