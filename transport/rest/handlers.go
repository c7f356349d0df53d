package rest

import (
	"encoding/json"
	"net/http"
)

func (that *Server) handlePing(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("pong"))
}

func (that *Server) handleListMatches(writer http.ResponseWriter, _ *http.Request) {
	that.writeJSON(writer, http.StatusOK, that.directory.ListWaitingPublic())
}

func (that *Server) handleGetMatch(writer http.ResponseWriter, req *http.Request) {
	match, ok := that.directory.ByID(req.PathValue("id"))
	if !ok {
		http.Error(writer, "match not found", http.StatusNotFound)
		return
	}

	that.writeJSON(writer, http.StatusOK, match.Summary())
}

func (that *Server) handleGetMatchByCode(writer http.ResponseWriter, req *http.Request) {
	match, ok := that.directory.ByJoinCode(req.PathValue("code"))
	if !ok {
		http.Error(writer, "match not found", http.StatusNotFound)
		return
	}

	that.writeJSON(writer, http.StatusOK, match.Summary())
}

func (that *Server) writeJSON(writer http.ResponseWriter, status int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	if err := json.NewEncoder(writer).Encode(v); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
