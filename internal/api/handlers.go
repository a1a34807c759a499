package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/socrabot/tutor-backend/internal/audit"
	"github.com/socrabot/tutor-backend/internal/core"
)

type APIHandler struct {
	tutorService *core.TutorService
	auditLogger  *audit.Logger
}

func NewAPIHandler(ts *core.TutorService, al *audit.Logger) *APIHandler {
	return &APIHandler{tutorService: ts, auditLogger: al}
}

// flexInt64 accepts numeric, quoted-numeric, empty-string, and null JSON
// encodings; clients are inconsistent about how they send ids. Zero means
// absent.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(value)
	return nil
}

func (f flexInt64) pointer() *int64 {
	if f == 0 {
		return nil
	}
	value := int64(f)
	return &value
}

type AskRequest struct {
	CourseID     flexInt64         `json:"course_id"`
	Message      string            `json:"message"`
	CodioContext core.CodioContext `json:"codio_context"`
	UserID       flexInt64         `json:"user_id"`
}

type AskCodeRequest struct {
	CourseID     flexInt64         `json:"course_id"`
	Message      string            `json:"message"`
	CodioContext core.CodioContext `json:"codio_context"`
	UserID       flexInt64         `json:"user_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.CourseID == 0 {
		writeError(w, http.StatusBadRequest, "No course ID provided")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	rawText, err := h.tutorService.Ask(r.Context(), int64(req.CourseID), req.Message, req.UserID.pointer())
	if err != nil {
		log.Printf("Error generating response for course %d: %v", req.CourseID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	finalResponse := core.ExtractContent(rawText)

	if h.auditLogger != nil {
		h.auditLogger.Record(audit.Entry{
			CourseID:   strconv.FormatInt(int64(req.CourseID), 10),
			UserInput:  req.Message,
			Response:   strings.ReplaceAll(finalResponse, "\n", "<br>"),
			UserID:     req.CodioContext.AssignmentData.UserID,
			UserName:   req.CodioContext.AssignmentData.UserName,
			Assignment: req.CodioContext.AssignmentData.AssignmentName,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": finalResponse})
}

func (h *APIHandler) AskCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req AskCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	rawText, err := h.tutorService.AskCode(r.Context(), core.AskCodeRequest{
		Message: req.Message,
		UserID:  req.UserID.pointer(),
		Codio:   req.CodioContext,
	})
	if err != nil {
		log.Printf("Error generating code response for course %q: %v", req.CodioContext.AssignmentData.CourseName, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	finalResponse := core.ExtractContent(rawText)

	if h.auditLogger != nil {
		auditCourse := req.CodioContext.AssignmentData.CourseName
		if auditCourse == "" {
			auditCourse = strconv.FormatInt(int64(req.CourseID), 10)
		}
		h.auditLogger.Record(audit.Entry{
			CourseID:   auditCourse,
			UserInput:  req.Message,
			Response:   finalResponse,
			UserID:     req.CodioContext.AssignmentData.UserID,
			UserName:   req.CodioContext.AssignmentData.UserName,
			Assignment: req.CodioContext.AssignmentData.AssignmentName,
		})
		h.auditLogger.RecordContext(req.CodioContext.AssignmentData.UserName, req.CodioContext)
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": finalResponse})
}
