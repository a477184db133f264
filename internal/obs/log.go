package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

const serviceName = "kortio-api"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line-oriented logger. Every line written
// through it is a self-contained JSON object.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest serializes entry as one JSON log line. Entries that cannot
// be marshaled are replaced with a fixed error line so the stream stays
// parseable.
func LogRequest(entry map[string]any) {
	if _, ok := entry["service"]; !ok {
		entry["service"] = serviceName
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","service":"` + serviceName + `","msg":"log entry marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
