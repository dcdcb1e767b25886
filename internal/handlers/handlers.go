package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/morphdetect/morphdetect-api/internal/config"
	"github.com/morphdetect/morphdetect-api/internal/detector"
	"github.com/morphdetect/morphdetect-api/internal/history"
)

const serverVersion = "1.0.0"

type Handler struct {
	detector       *detector.Detector
	store          *history.Store
	cfg            *config.Config
	log            *zap.Logger
	modelAvailable bool
}

func NewHandler(d *detector.Detector, store *history.Store, cfg *config.Config, log *zap.Logger, modelAvailable bool) *Handler {
	return &Handler{
		detector:       d,
		store:          store,
		cfg:            cfg,
		log:            log,
		modelAvailable: modelAvailable,
	}
}

type resultPayload struct {
	RawLogit       float64 `json:"raw_logit"`
	PredictedClass int     `json:"predicted_class"`
	ClassName      string  `json:"class_name"`
	Confidence     float64 `json:"confidence"`
	Model          string  `json:"model"`
}

type interpretationPayload struct {
	IsMorphed bool   `json:"is_morphed"`
	RiskLevel string `json:"risk_level"`
}

type analysisResponse struct {
	Status         string                `json:"status"`
	AnalysisID     string                `json:"analysis_id"`
	Timestamp      string                `json:"timestamp"`
	Filename       string                `json:"filename,omitempty"`
	Result         resultPayload         `json:"result"`
	Interpretation interpretationPayload `json:"interpretation"`
}

// Index lists the available endpoints.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"message": "MorphDetect Backend API",
		"version": serverVersion,
		"endpoints": []string{
			"/api/health",
			"/api/analyze",
			"/api/analyze-base64",
			"/api/history",
			"/api/calibrate",
		},
	})
}

// Health reports service and model state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"model_loaded":    h.detector.Ready(),
		"model_type":      h.detector.ModelType(),
		"model_available": h.modelAvailable,
		"server_version":  serverVersion,
	})
}

// Analyze handles a multipart image upload: the file is persisted under a
// unique name, analyzed, and the result summarized into history.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.App.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.App.MaxUploadSize); err != nil {
		h.sendError(w, fmt.Sprintf("File too large. Maximum size is %dMB.",
			h.cfg.App.MaxUploadSize/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.sendError(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.sendError(w, "No file selected", http.StatusBadRequest)
		return
	}
	if !h.allowedFile(header.Filename) {
		h.sendError(w, fmt.Sprintf("File type not allowed. Allowed types: %s",
			strings.Join(h.cfg.App.AllowedExtensions, ", ")), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	filename, err := h.saveUpload(header.Filename, data)
	if err != nil {
		h.log.Error("failed to save upload", zap.Error(err))
		h.sendError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	h.log.Info("analyzing image", zap.String("filename", filename))
	h.respondWithAnalysis(w, data, filename, true)
}

type base64Request struct {
	Image string `json:"image"`
}

// AnalyzeBase64 handles an inline base64 submission. Any data-URI prefix is
// stripped before decoding; the bytes are analyzed without being retained.
func (h *Handler) AnalyzeBase64(w http.ResponseWriter, r *http.Request) {
	var req base64Request
	if err := json.NewDecoder(io.LimitReader(r.Body, h.cfg.App.MaxUploadSize)).Decode(&req); err != nil || req.Image == "" {
		h.sendError(w, "No image data provided", http.StatusBadRequest)
		return
	}

	encoded := req.Image
	if idx := strings.Index(encoded, ","); idx >= 0 {
		encoded = encoded[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		h.sendError(w, fmt.Sprintf("Invalid base64 image data: %v", err), http.StatusBadRequest)
		return
	}

	filename := fmt.Sprintf("temp_%s.jpg", uuidHex())
	h.log.Info("analyzing base64 image", zap.String("filename", filename))
	h.respondWithAnalysis(w, data, filename, false)
}

// respondWithAnalysis runs the detection pipeline, writes the response, and
// records the summary. History persistence is best-effort: failures are
// logged and never fail a response that was already computed.
func (h *Handler) respondWithAnalysis(w http.ResponseWriter, data []byte, filename string, includeFilename bool) {
	analysis, err := h.detector.Detect(data)
	if err != nil {
		switch {
		case errors.Is(err, detector.ErrUnsupportedImage):
			h.sendError(w, fmt.Sprintf("Detection failed: %v", err), http.StatusBadRequest)
		case errors.Is(err, detector.ErrModelUnavailable):
			h.sendError(w, "Model not initialized", http.StatusInternalServerError)
		default:
			h.log.Error("detection failed", zap.String("filename", filename), zap.Error(err))
			h.sendError(w, fmt.Sprintf("Detection failed: %v", err), http.StatusInternalServerError)
		}
		return
	}

	resp := analysisResponse{
		Status:     "success",
		AnalysisID: uuid.New().String(),
		Timestamp:  analysis.Timestamp.Format(time.RFC3339),
		Result: resultPayload{
			RawLogit:       analysis.Result.RawLogit,
			PredictedClass: analysis.Result.PredictedClass,
			ClassName:      analysis.Result.ClassName,
			Confidence:     analysis.Interpretation.Confidence,
			Model:          analysis.Result.Model,
		},
		Interpretation: interpretationPayload{
			IsMorphed: analysis.Interpretation.IsMorphed,
			RiskLevel: string(analysis.Interpretation.RiskLevel),
		},
	}
	if includeFilename {
		resp.Filename = filename
	}

	if err := h.store.Record(history.Record{
		ID:               resp.AnalysisID,
		Timestamp:        analysis.Timestamp,
		Filename:         filename,
		ClassName:        analysis.Result.ClassName,
		Confidence:       analysis.Interpretation.Confidence,
		RiskLevel:        string(analysis.Interpretation.RiskLevel),
		ProcessingTimeMS: analysis.ProcessingTimeMS,
		ThumbnailURL:     "/uploads/" + filename,
	}); err != nil {
		h.log.Warn("failed to persist history", zap.Error(err))
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// History returns the full capped log, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"history": h.store.List(),
	})
}

// Calibrate is a placeholder kept for API compatibility.
func (h *Handler) Calibrate(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"message":   "Calibration endpoint - implementation pending",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ServeUpload serves a stored upload (analysis thumbnails).
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["filename"])
	if name == "." || name == string(filepath.Separator) {
		h.sendError(w, "Invalid filename", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.cfg.App.UploadDir, name))
}

func (h *Handler) allowedFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range h.cfg.App.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// saveUpload stores the upload under a unique name and returns that name.
func (h *Handler) saveUpload(originalName string, data []byte) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	filename := fmt.Sprintf("%s.%s", uuidHex(), ext)
	if err := os.WriteFile(filepath.Join(h.cfg.App.UploadDir, filename), data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) sendError(w http.ResponseWriter, message string, status int) {
	h.sendJSON(w, status, map[string]string{
		"error":  message,
		"status": "error",
	})
}

func uuidHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
