package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dogebooch/extractvault/internal/catalog"
	"github.com/dogebooch/extractvault/internal/ingest"
)

// extractRequest is the userscript's wire format for POST /extract.
type extractRequest struct {
	URL      string                `json:"url"`
	Site     string                `json:"site"`
	HTML     string                `json:"html"`
	Metadata json.RawMessage       `json:"metadata"`
	Images   []extractRequestImage `json:"images"`
}

type extractRequestImage struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
}

type extractResponse struct {
	Status          string          `json:"status"`
	ExtractionCount int             `json:"extraction_count"`
	Files           extractFiles    `json:"files"`
	Database        extractDatabase `json:"database"`
}

type extractFiles struct {
	HTML   string   `json:"html"`
	JSON   string   `json:"json"`
	Images []string `json:"images"`
}

type extractDatabase struct {
	Persisted bool    `json:"persisted"`
	Error     *string `json:"error"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed json: "+err.Error())
		return
	}
	if len(req.Metadata) == 0 || !json.Valid(req.Metadata) {
		writeJSONError(w, http.StatusBadRequest, "metadata must be valid json")
		return
	}

	media := make([]ingest.MediaItem, 0, len(req.Images))
	for _, img := range req.Images {
		raw, err := base64.StdEncoding.DecodeString(img.DataBase64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed base64 image data: "+err.Error())
			return
		}
		media = append(media, ingest.MediaItem{Bytes: raw, Filename: img.Filename, MimeType: img.MimeType})
	}

	outcome, err := s.orchestrator.Ingest(r.Context(), ingest.Payload{
		OriginURL:    req.URL,
		SiteHint:     req.Site,
		RawHTML:      req.HTML,
		MetadataJSON: string(req.Metadata),
		Media:        media,
	})
	if err != nil {
		// An archive failure means nothing was durably written, so the
		// receiver returns 500.
		s.logger.Errorf(r.Context(), "http", "[%s] ingest failed: %v", requestID(r.Context()), err)
		writeJSONError(w, http.StatusInternalServerError, "ingestion failed: "+err.Error())
		return
	}

	count := s.incrementReceived()

	resp := extractResponse{
		Status:          "success",
		ExtractionCount: int(count),
		Files: extractFiles{
			HTML:   outcome.ArchiveHTMLPath,
			JSON:   outcome.ArchiveJSONPath,
			Images: outcome.MediaPaths,
		},
		Database: extractDatabase{Persisted: outcome.CatalogPersisted},
	}
	if outcome.CatalogError != "" {
		resp.Database.Error = &outcome.CatalogError
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	TotalReceived int64  `json:"total_received"`
	StartedAt     string `json:"started_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		TotalReceived: atomicLoad(&s.totalReceived),
		StartedAt:     s.startedAt.Format(time.RFC3339),
	})
}

type sourceSummaryResponse struct {
	SourceID      int64  `json:"source_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

// handleSources is a thin read-only listing of every known Source with its
// question count.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summaries, err := s.repo.ListSources(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list sources: "+err.Error())
		return
	}
	out := make([]sourceSummaryResponse, 0, len(summaries))
	for _, sm := range summaries {
		out = append(out, sourceSummaryResponse{
			SourceID: sm.SourceID, Name: sm.Name, Description: sm.Description, QuestionCount: sm.QuestionCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type questionResponse struct {
	QuestionID        int64           `json:"question_id"`
	SourceID          int64           `json:"source_id"`
	SourceQuestionKey string          `json:"source_question_key"`
	Status            string          `json:"status"`
	ExtractionPath    string          `json:"extraction_path"`
	ParentID          *int64          `json:"parent_id"`
	Media             []mediaResponse `json:"media"`
}

type mediaResponse struct {
	MediaID      int64  `json:"media_id"`
	MediaRole    string `json:"media_role"`
	MediaType    string `json:"media_type"`
	MimeType     string `json:"mime_type"`
	RelativePath string `json:"relative_path"`
}

// handleQuestion serves GET /questions/{source_id}/{key}: one question
// looked up by its business key, with its media list attached.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/questions/"), "/"), "/")
	if len(parts) != 2 {
		writeJSONError(w, http.StatusBadRequest, "expected /questions/{source_id}/{key}")
		return
	}
	sourceID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid source id")
		return
	}

	question, err := s.repo.GetQuestionBySourceKey(r.Context(), sourceID, parts[1])
	if err == catalog.ErrNotFound {
		writeJSONError(w, http.StatusNotFound, "no question for source "+parts[0]+" key "+parts[1])
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "get question: "+err.Error())
		return
	}

	mediaRows, err := s.repo.GetMediaForQuestion(r.Context(), question.QuestionID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "get media: "+err.Error())
		return
	}
	mediaOut := make([]mediaResponse, 0, len(mediaRows))
	for _, m := range mediaRows {
		mediaOut = append(mediaOut, mediaResponse{
			MediaID: m.MediaID, MediaRole: m.MediaRole, MediaType: m.MediaType,
			MimeType: m.MimeType, RelativePath: m.RelativePath,
		})
	}

	writeJSON(w, http.StatusOK, questionResponse{
		QuestionID: question.QuestionID, SourceID: question.SourceID,
		SourceQuestionKey: question.SourceQuestionKey, Status: question.Status,
		ExtractionPath: question.ExtractionPath, ParentID: question.ParentID,
		Media: mediaOut,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}
