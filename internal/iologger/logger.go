// Package iologger configures the process-wide slog logger.
package iologger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/medtext/omoplink/pkg/config"
)

const logFileName = "omoplink.log"

// Init installs the default slog logger according to the log settings.
// With the "file" destination the log goes to logDir/omoplink.log;
// appendLog keeps the previous content, otherwise the file is
// truncated. Reconfiguration after config load passes appendLog=true
// so bootstrap lines are not lost.
func Init(logDir string, cfg config.LogConfig, appendLog bool) error {
	writer, err := destWriter(logDir, cfg.Destination, appendLog)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text", "tint":
		// tint is reserved for a colored handler; plain text for now.
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func destWriter(
	logDir, dest string,
	appendLog bool,
) (io.Writer, error) {
	switch dest {
	case "stdout":
		return os.Stdout, nil
	case "file":
		logPath := filepath.Join(logDir, logFileName)
		flags := os.O_CREATE | os.O_WRONLY
		if appendLog {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		file, err := os.OpenFile(logPath, flags, 0644)
		if err != nil {
			return nil, CreateLogFileError(logPath, err)
		}
		return file, nil
	default:
		return os.Stderr, nil
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
