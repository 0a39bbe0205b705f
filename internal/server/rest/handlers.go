package rest

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// multipartOverhead is allowed on top of the file limit for boundaries and
// the other form fields.
const multipartOverhead = 1 << 20

// maxMemory is how much of a multipart body is kept in memory before the
// rest spills to temporary files.
const maxMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, "File too large", common.ErrValidation)
			return
		}
		s.respondError(w, r, "Expecting multipart form", errors.Join(common.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, "No file uploaded", errors.Join(common.ErrValidation, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, "Failed to read file", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := s.files.Upload(ctx, uploadedFileName(header), contentType, data, r.FormValue(common.EncryptionKeyField))
	if err != nil {
		s.respondError(w, r, "Failed to upload file", err)
		return
	}

	respondJSON(w, http.StatusCreated, uploadResponse{
		Success: true,
		FileID:  rec.FileID,
		Message: "File uploaded and encrypted successfully",
	})
}

// uploadedFileName returns the filename parameter exactly as the client sent
// it. multipart.FileHeader.Filename has already been reduced to its base name.
func uploadedFileName(h *multipart.FileHeader) string {
	if _, params, err := mime.ParseMediaType(h.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return h.Filename
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	key := r.URL.Query().Get(common.EncryptionKeyField)

	res, err := s.files.Download(r.Context(), fileID, key)
	if err != nil {
		s.respondError(w, r, "Failed to download file", err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		s.logger.Warn(r.Context(), "write download body", "file_id", fileID, "error", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.files.List(r.Context())
	if err != nil {
		s.respondError(w, r, "Failed to list files", err)
		return
	}
	respondJSON(w, http.StatusOK, filesResponse{Success: true, Files: recs})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.files.Delete(r.Context(), r.PathValue("fileId")); err != nil {
		s.respondError(w, r, "Failed to delete file", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Success: true, Message: "File deleted successfully"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.files.Logs(r.Context())
	if err != nil {
		s.respondError(w, r, "Failed to fetch activity logs", err)
		return
	}
	respondJSON(w, http.StatusOK, logsResponse{Success: true, Logs: entries})
}
