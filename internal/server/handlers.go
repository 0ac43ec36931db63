package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/errs"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type countBody struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

type regTypeBody struct {
	OID  catalog.OID `json:"oid"`
	Name string      `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.cat.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.cat.Databases(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dbs)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := s.cat.Relations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	id, err := parseOID(chi.URLParam(r, "relid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := s.cat.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	id, err := parseOID(chi.URLParam(r, "relid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attrs, err := s.cat.Attributes(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	id, err := parseOID(chi.URLParam(r, "relid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cons, err := s.cat.Constraints(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cons)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	n, err := s.cat.Count(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countBody{Table: table, Count: n})
}

func (s *Server) handleRegTypes(w http.ResponseWriter, _ *http.Request) {
	oids := catalog.RegTypeOIDs()
	out := make([]regTypeBody, len(oids))
	for i, oid := range oids {
		out[i] = regTypeBody{OID: oid, Name: catalog.TypeName(oid)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegType(w http.ResponseWriter, r *http.Request) {
	oid, err := parseOID(chi.URLParam(r, "oid"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name, ok := catalog.RegType(oid)
	if !ok {
		s.writeError(w, r, errs.Newf(errs.ErrKindNotFound, "type %d is not a built-in type", oid))
		return
	}
	writeJSON(w, http.StatusOK, regTypeBody{OID: oid, Name: name})
}

func parseOID(s string) (catalog.OID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindInvalidInput, "invalid oid "+strconv.Quote(s), err)
	}
	return catalog.OID(n), nil
}

// statusFor maps an error kind to the HTTP status the API reports.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindQueryFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"path": r.URL.Path, "kind": kind.String()})
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
