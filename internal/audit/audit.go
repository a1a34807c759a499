// Package audit appends per-request records to local files: a plain-text
// request log, a JSON array of exchanges, and a CSV of raw request contexts.
// Audit failures are logged and never fail the request.
package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID         string `json:"id"`
	CourseID   string `json:"CourseID"`
	UserInput  string `json:"UserInput"`
	Response   string `json:"Response"`
	UserID     string `json:"UserID"`
	UserName   string `json:"UserName"`
	UTCTime    string `json:"UTCTime"`
	Assignment string `json:"assignment"`
}

type Logger struct {
	mu       sync.Mutex
	logPath  string
	jsonPath string
	csvPath  string
}

func NewLogger(dir string) *Logger {
	return &Logger{
		logPath:  filepath.Join(dir, "api_requests.log"),
		jsonPath: filepath.Join(dir, "api_requests.json"),
		csvPath:  filepath.Join(dir, "codio_context.csv"),
	}
}

// Record appends the exchange to the request log and the JSON audit file.
func (l *Logger) Record(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.UTCTime == "" {
		entry.UTCTime = time.Now().UTC().Format("2006-01-02 15:04:05")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.appendLog(entry)
	l.appendJSON(entry)
}

// RecordContext appends one CSV row with the raw request context.
func (l *Logger) RecordContext(userName string, context any) {
	contextJSON, err := json.Marshal(context)
	if err != nil {
		log.Printf("Warning: failed to marshal audit context: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Warning: failed to open audit csv: %v", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	utcTime := time.Now().UTC().Format("2006-01-02 15:04:05")
	if err := writer.Write([]string{utcTime, userName, string(contextJSON)}); err != nil {
		log.Printf("Warning: failed to write audit csv row: %v", err)
		return
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Printf("Warning: failed to flush audit csv: %v", err)
	}
}

func (l *Logger) appendLog(entry Entry) {
	file, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Warning: failed to open audit log: %v", err)
		return
	}
	defer file.Close()

	fmt.Fprintf(file, "Course ID: %s, User Input: %s\n", entry.CourseID, entry.UserInput)
	fmt.Fprintf(file, "Response: %s\n", entry.Response)
}

// appendJSON keeps the audit file a single JSON array, rewriting it with the
// new entry appended. A corrupt or missing file restarts the array.
func (l *Logger) appendJSON(entry Entry) {
	var entries []Entry
	if data, err := os.ReadFile(l.jsonPath); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Printf("Warning: audit json file unreadable, starting fresh: %v", err)
			entries = nil
		}
	}

	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		log.Printf("Warning: failed to marshal audit entries: %v", err)
		return
	}
	if err := os.WriteFile(l.jsonPath, data, 0o644); err != nil {
		log.Printf("Warning: failed to write audit json: %v", err)
	}
}
