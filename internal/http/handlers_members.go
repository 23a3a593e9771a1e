package http

import (
	"net/http"

	"mess/internal/core"
	applog "mess/internal/log"
)

type addMemberRequest struct {
	Name    string `json:"name"`
	IsGuest bool   `json:"isGuest"`
}

type membersResponse struct {
	Members []core.Member `json:"members"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.billing.Members(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list_members", err)
		return
	}
	writeJSON(w, http.StatusOK, membersResponse{Members: nonNil(members)})
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.billing.Member(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, "get_member", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.billing.AddMember(r.Context(), req.Name, req.IsGuest)
	if err != nil {
		s.writeServiceError(w, r, "add_member", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var patch core.MemberPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.billing.UpdateMember(r.Context(), r.PathValue("name"), patch)
	if err != nil {
		s.writeServiceError(w, r, "update_member", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.billing.RemoveMember(r.Context(), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, "remove_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportMembers(w http.ResponseWriter, r *http.Request) {
	data, err := s.billing.ExportMembers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mess-members.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handleImportMembers(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import file too large")
		return
	}
	members, err := s.billing.ImportMembers(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, r, applog.OpImport, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Members imported",
		applog.FieldOperation, applog.OpImport,
		applog.FieldMembers, len(members))
	writeJSON(w, http.StatusOK, membersResponse{Members: nonNil(members)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
