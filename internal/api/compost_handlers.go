package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"backend-roomreq/internal/compost"
	"backend-roomreq/internal/models"
)

const (
	maxUploadFiles    = 10
	maxUploadFileSize = 50 << 20 // 50MB per file
)

var allowedUploadMimes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":      true,
	"text/markdown":   true,
	"text/x-markdown": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
}

// Browsers sometimes send the wrong MIME type, so known extensions are
// accepted too.
var allowedUploadExts = map[string]bool{
	".pdf": true, ".docx": true, ".txt": true, ".md": true, ".markdown": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

func registerCompostRoutes(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("POST /api/v1/compost/session", createCompostSessionHandler(deps))
	mux.HandleFunc("GET /api/v1/compost/sessions", listCompostSessionsHandler(deps))
	mux.HandleFunc("GET /api/v1/compost/session/{sessionId}", getCompostSessionHandler(deps))
	mux.HandleFunc("POST /api/v1/compost/session/{sessionId}/upload", uploadCompostFilesHandler(deps))
	mux.HandleFunc("POST /api/v1/compost/session/{sessionId}/description", updateCompostDescriptionHandler(deps))
	mux.HandleFunc("POST /api/v1/compost/session/{sessionId}/extract", extractComponentsHandler(deps))
	mux.HandleFunc("POST /api/v1/compost/session/{sessionId}/complete", completeCompostSessionHandler(deps))
	mux.HandleFunc("DELETE /api/v1/compost/session/{sessionId}", deleteCompostSessionHandler(deps))
}

func createCompostSessionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProjectName string `json:"projectName"`
		}
		// An empty body is fine; the project name just defaults.
		_ = json.NewDecoder(r.Body).Decode(&body)

		sess := deps.Compost.CreateSession(body.ProjectName)
		sendJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"session": map[string]any{
				"id":          sess.ID,
				"projectName": sess.ProjectName,
				"status":      sess.Status,
				"progress":    sess.Progress,
			},
		})
	}
}

func getCompostSessionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := deps.Compost.GetSession(r.PathValue("sessionId"))
		if !ok {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
	}
}

func uploadCompostFilesHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionId")
		if _, ok := deps.Compost.GetSession(sessionID); !ok {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadFiles*maxUploadFileSize+(1<<20))
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			sendError(w, http.StatusBadRequest, "Failed to parse upload", err.Error())
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			sendError(w, http.StatusBadRequest, "No files uploaded", "")
			return
		}
		if len(headers) > maxUploadFiles {
			sendError(w, http.StatusBadRequest, fmt.Sprintf("Too many files: maximum is %d", maxUploadFiles), "")
			return
		}

		uploads := make([]compost.Upload, 0, len(headers))
		for _, h := range headers {
			if h.Size > maxUploadFileSize {
				removeUploads(uploads)
				sendError(w, http.StatusBadRequest, fmt.Sprintf("File too large: %s", h.Filename), "")
				return
			}
			mimeType := h.Header.Get("Content-Type")
			ext := strings.ToLower(filepath.Ext(h.Filename))
			if !allowedUploadMimes[mimeType] && !allowedUploadExts[ext] {
				removeUploads(uploads)
				sendError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s (%s)", mimeType, h.Filename), "")
				return
			}

			path, err := saveUpload(deps.UploadDir, h.Filename, h)
			if err != nil {
				deps.Log.Errorw("error saving upload", "file", h.Filename, "error", err)
				removeUploads(uploads)
				sendError(w, http.StatusInternalServerError, "Failed to upload files", err.Error())
				return
			}
			uploads = append(uploads, compost.Upload{Path: path, OriginalName: h.Filename, MimeType: mimeType})
		}

		progress := func(p models.CompostingProgress) {
			deps.Hub.Broadcast(sessionID, "composting-progress", p)
		}
		processed, err := deps.Compost.ProcessUploads(r.Context(), sessionID, uploads, progress)
		if err != nil {
			sendError(w, http.StatusInternalServerError, "Failed to upload files", err.Error())
			return
		}

		summaries := make([]map[string]any, 0, len(processed))
		for _, f := range processed {
			summaries = append(summaries, map[string]any{
				"id":           f.ID,
				"originalName": f.OriginalName,
				"size":         f.Size,
				"wordCount":    f.WordCount,
			})
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Successfully processed %d files", len(processed)),
			"files":   summaries,
		})
	}
}

func updateCompostDescriptionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Description == "" {
			sendError(w, http.StatusBadRequest, "Description is required", "")
			return
		}

		sess, ok := deps.Compost.UpdateDescription(r.PathValue("sessionId"), body.Description)
		if !ok {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
	}
}

func extractComponentsHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionId")
		if _, ok := deps.Compost.GetSession(sessionID); !ok {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}

		progress := func(p models.CompostingProgress) {
			deps.Hub.Broadcast(sessionID, "composting-progress", p)
		}
		components, err := deps.Compost.ExtractComponents(r.Context(), sessionID, progress)
		if err != nil {
			sendError(w, http.StatusInternalServerError, "Failed to extract components", err.Error())
			return
		}

		summaries := make([]map[string]any, 0, len(components))
		for _, c := range components {
			summaries = append(summaries, map[string]any{
				"id":               c.ID,
				"title":            c.Title,
				"type":             c.Type,
				"tags":             c.Tags,
				"reusabilityScore": c.ReusabilityScore,
				"dependencies":     c.Dependencies,
			})
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"message":    fmt.Sprintf("Successfully extracted %d components", len(components)),
			"components": summaries,
		})
	}
}

func completeCompostSessionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := deps.Compost.CompleteSession(r.PathValue("sessionId"))
		if !ok {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"success": true, "session": sess})
	}
}

func deleteCompostSessionHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Compost.DeleteSession(r.PathValue("sessionId")) {
			sendError(w, http.StatusNotFound, "Session not found", "")
			return
		}
		sendJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Session deleted"})
	}
}

func listCompostSessionsHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := deps.Compost.AllSessions()
		stats := make([]map[string]any, 0, len(sessions))
		active := 0
		for _, sess := range sessions {
			if st, ok := deps.Compost.SessionStats(sess.ID); ok {
				stats = append(stats, st)
			}
			if sess.Status != models.CompostCompleted {
				active++
			}
		}
		sendJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"sessions":       stats,
			"totalSessions":  len(sessions),
			"activeSessions": active,
		})
	}
}

func saveUpload(dir, originalName string, h *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src, err := h.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, fmt.Sprintf("files-%s-%s", uuid.NewString(), filepath.Base(originalName)))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func removeUploads(uploads []compost.Upload) {
	for _, up := range uploads {
		_ = os.Remove(up.Path)
	}
}
