package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/expense-snap/internal/category"
)

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Snapshot())
}

// handleEvents streams snapshots as server-sent events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	updates, unsubscribe := s.orchestrator.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				slog.Error("Error encoding snapshot", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if !s.orchestrator.Trigger() {
		writeError(w, http.StatusConflict, "A recognition attempt is already running")
		return
	}
	writeJSON(w, http.StatusAccepted, s.orchestrator.Snapshot())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.orchestrator.Cancel() {
		writeError(w, http.StatusConflict, "Nothing to cancel")
		return
	}
	writeJSON(w, http.StatusAccepted, s.orchestrator.Snapshot())
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var edit Edit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, saved, err := s.orchestrator.Confirm(r.Context(), edit)
	switch {
	case errors.Is(err, ErrNoPendingResult), errors.Is(err, ErrConfirmInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrInvalidEdit):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Error confirming result", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not save the expense")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"result":  result,
		"receipt": saved,
	})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Abandon(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts(category.ID(r.URL.Query().Get("category")))
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.Totals()
	if err != nil {
		slog.Error("Error computing totals", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			writeError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		slog.Error("Error deleting receipt", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
