package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunLogger records one batch pass over one file to its own log file under
// run_logs/, with elapsed-time stamps on every line. It exists alongside
// the structured service log so a single run can be read start to finish.
type RunLogger struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartRunLogging opens the log file for a new batch pass. A nil RunLogger
// is safe to call; every method no-ops, so callers that could not open a
// file keep working.
func StartRunLogging(runID string) (*RunLogger, error) {
	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join("run_logs", fmt.Sprintf("run_%s_%s.log", runID, timestamp))

	if err := os.MkdirAll("run_logs", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}
	logger.writeHeader()
	return logger, nil
}

// Log writes one stamped line to the run log.
func (r *RunLogger) Log(format string, args ...interface{}) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(r.startTime).Round(time.Millisecond)
	message := fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed, fmt.Sprintf(format, args...))
	r.logFile.WriteString(message)
	r.logFile.Sync()
}

// LogSection writes a visual section break.
func (r *RunLogger) LogSection(title string) {
	if r == nil {
		return
	}
	separator := strings.Repeat("=", 80)
	r.Log(separator)
	r.Log("= %s", title)
	r.Log(separator)
}

// LogRequest records one generative request.
func (r *RunLogger) LogRequest(commentID, backend, prompt string) {
	if r == nil {
		return
	}
	r.LogSection(fmt.Sprintf("LLM REQUEST - Comment %s", commentID))
	r.Log("Backend: %s", backend)
	r.Log("Prompt length: %d characters", len(prompt))
	r.mutex.Lock()
	r.logFile.WriteString(prompt + "\n")
	r.mutex.Unlock()
}

// LogResponse records one generative response.
func (r *RunLogger) LogResponse(commentID, response string) {
	if r == nil {
		return
	}
	r.LogSection(fmt.Sprintf("LLM RESPONSE - Comment %s", commentID))
	r.Log("Response length: %d characters", len(response))
	r.mutex.Lock()
	r.logFile.WriteString(response + "\n")
	r.mutex.Unlock()
}

// LogError records an error with its context.
func (r *RunLogger) LogError(context string, err error) {
	if r == nil {
		return
	}
	r.Log("ERROR in %s: %v", context, err)
}

// Close finalizes the run log.
func (r *RunLogger) Close() {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.logFile != nil {
		elapsed := time.Since(r.startTime).Round(time.Millisecond)
		r.logFile.WriteString(fmt.Sprintf("Run completed. Total duration: %v\n", elapsed))
		if err := r.logFile.Close(); err != nil {
			log.Warn().Err(err).Str("run_id", r.runID).Msg("failed to close run log")
		}
		r.logFile = nil
	}
}

func (r *RunLogger) writeHeader() {
	header := fmt.Sprintf(`CANVASREVIEW RUN LOG
Run ID: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, r.runID, r.startTime.Format("2006-01-02 15:04:05"))
	r.logFile.WriteString(header)
	r.logFile.Sync()
}
