package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// Logging is JSON lines on stdout, one object per line. There is no level
// machinery; consumers filter on the "type" field.

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line logger.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Emit marshals entry as one JSON line, filling "ts" when the caller did not
// set it. A marshal failure is reported as its own line rather than dropped.
func Emit(entry map[string]any) {
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Printf(`{"type":"log_error","error":%q}`, err.Error())
		return
	}
	Logger().Println(string(data))
}

// LogRequest emits one access-log entry.
func LogRequest(entry map[string]any) {
	Emit(entry)
}
