package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// writeJSONError writes a JSON error response with CORS headers set
func writeJSONError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListCards returns all cards sorted by timestamp descending
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.service.ListCards()
	if err != nil {
		slog.Error("Error listing cards", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// maxUploadSize bounds card uploads; generous enough for high-resolution
// phone photos
const maxUploadSize = int64(50 << 20) // 50MB

// handleUploadCard handles the file-picker upload path
func (s *Server) handleUploadCard(w http.ResponseWriter, r *http.Request) {
	flow := s.service.Flow()
	if err := flow.Begin(); err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		flow.Fail(errorMsg)
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file was selected. Please choose a file to upload."
		flow.Fail(errorMsg)
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		errorMsg := "File is too large. Maximum size is 50MB. Please compress or resize your image."
		flow.Fail(errorMsg)
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		errorMsg := "Error reading file. Please try again."
		flow.Fail(errorMsg)
		writeJSONError(w, errorMsg, http.StatusInternalServerError)
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	s.finishCardCreation(w, r, flow, header.Filename, data, contentType)
}

// handleCaptureCard handles the camera capture path: the client rasterizes
// the current video frame and posts it as a base64 data URL.
func (s *Server) handleCaptureCard(w http.ResponseWriter, r *http.Request) {
	flow := s.service.Flow()
	if err := flow.Begin(); err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorMsg := "Invalid request body"
		flow.Fail(errorMsg)
		writeJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}

	data, mimeType, err := DecodeDataURL(req.Image)
	if err != nil {
		slog.Error("Error decoding capture payload", "error", err)
		flow.Fail(err.Error())
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.finishCardCreation(w, r, flow, captureFilename(mimeType), data, mimeType)
}

// finishCardCreation runs the shared tail of both acquisition paths:
// extraction, persistence and the flow transitions around them.
func (s *Server) finishCardCreation(w http.ResponseWriter, r *http.Request, flow *Controller, filename string, data []byte, contentType string) {
	// The identity must be resolved before any store operation is attempted
	uploadedBy := s.identity.Resolve(w, r)

	card, err := s.service.ProcessCard(filename, data, contentType, uploadedBy)
	if err != nil {
		slog.Error("Error processing card", "filename", filename, "error", err)
		flow.Fail(err.Error())
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	flow.Finish("Card saved")
	writeJSON(w, http.StatusCreated, card)
}

// uploadContentType determines the MIME type of an upload, falling back to
// the filename extension when the part header is silent
func uploadContentType(headerType, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(headerType))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleGetCard returns a single card
func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Card ID required", http.StatusBadRequest)
		return
	}
	card, err := s.service.GetCard(id)
	if err != nil {
		writeJSONError(w, "Card not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// handleGetCardImage returns the archived original image for a card
func (s *Server) handleGetCardImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Card ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetCardImage(id)
	if err != nil {
		writeJSONError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleUpdateCard overwrites the six textual fields of a card
func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Card ID required", http.StatusBadRequest)
		return
	}

	var fields Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Identity precondition holds for updates as well
	s.identity.Resolve(w, r)

	card, err := s.service.UpdateCard(id, fields)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			writeJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		slog.Error("Error updating card", "id", id, "error", err)
		writeJSONError(w, "Error updating card", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// handleDeleteCard deletes a card
func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, "Card ID required", http.StatusBadRequest)
		return
	}

	s.identity.Resolve(w, r)

	if err := s.service.DeleteCard(id); err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			// Already gone; surfaced but never fatal
			slog.Warn("Delete for unknown card", "id", id)
			writeJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting card", "id", id, "error", err)
		writeJSONError(w, "Error deleting card", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExportCards serializes the current list to CSV and triggers a
// download
func (s *Server) handleExportCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.service.ListCards()
	if err != nil {
		slog.Error("Error listing cards for export", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := WriteCSV(cards)
	if errors.Is(err, ErrNoCards) {
		s.service.Flow().SetMessage("No cards to export")
		writeJSONError(w, "No cards to export", http.StatusBadRequest)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.Write(data)
}

// handleCardEvents streams the live card feed as server-sent events: one
// snapshot on connect, then one event per store change. The subscription is
// torn down when the client disconnects.
func (s *Server) handleCardEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events := make(chan []*Card, 1)
	failures := make(chan error, 1)

	unsubscribe, err := s.service.Subscribe(func(cards []*Card) {
		// Keep only the newest snapshot if the client is slow.
		select {
		case events <- cards:
		default:
			select {
			case <-events:
			default:
			}
			select {
			case events <- cards:
			default:
			}
		}
	}, func(err error) {
		select {
		case failures <- err:
		default:
		}
	})
	if err != nil {
		slog.Error("Error subscribing to card feed", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer unsubscribe()

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-failures:
			slog.Error("Card feed failed", "error", err)
			return
		case cards := <-events:
			data, err := json.Marshal(cards)
			if err != nil {
				slog.Error("Error encoding card feed event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleState returns a snapshot of the view state controller
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Flow().Snapshot())
}

// handleSelection sets or clears the currently viewed card
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	flow := s.service.Flow()
	if req.ID == "" {
		flow.ClearSelection()
	} else {
		if _, err := s.service.GetCard(req.ID); err != nil {
			writeJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		flow.Select(req.ID)
	}

	writeJSON(w, http.StatusOK, flow.Snapshot())
}

// validModals are the modal values a client may request
var validModals = map[Modal]bool{
	ModalNone:          true,
	ModalCamera:        true,
	ModalEdit:          true,
	ModalDeleteConfirm: true,
}

// handleModal opens or closes a modal overlay
func (s *Server) handleModal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Modal Modal `json:"modal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !validModals[req.Modal] {
		writeJSONError(w, "Unknown modal", http.StatusBadRequest)
		return
	}

	flow := s.service.Flow()
	if req.Modal == ModalNone {
		flow.CloseModal()
	} else if err := flow.OpenModal(req.Modal); err != nil {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, flow.Snapshot())
}
