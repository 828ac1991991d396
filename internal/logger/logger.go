package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger
var logFile *os.File

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("[%s]", i)
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	return output
}

func applyLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if _, exists := os.LookupEnv("FANFORGE_DEBUG"); exists {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// Init configures human-readable console logging on stdout.
func Init() {
	log = zerolog.New(consoleWriter(os.Stdout)).With().Timestamp().Logger()
	applyLevel()
}

// InitFileOnly routes all logging to a timestamped file under logs/.
// Used in TUI mode, where stdout belongs to the monitor.
func InitFileOnly() error {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("fanforge_%s.log", timestamp))

	var err error
	logFile, err = os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	// JSON in files, console formatting is for terminals only.
	log = zerolog.New(logFile).With().Timestamp().Logger()
	applyLevel()

	Info("Logger initialized in file-only mode: %s", logPath)
	return nil
}

// Close closes the log file if one was opened by InitFileOnly.
func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

// SetOutput redirects console logging to w. Mainly for tests.
func SetOutput(w io.Writer) {
	log = zerolog.New(consoleWriter(w)).With().Timestamp().Logger()
}

func Debug(msg string, args ...interface{}) {
	log.Debug().Msgf(msg, args...)
}

func Info(msg string, args ...interface{}) {
	log.Info().Msgf(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	log.Warn().Msgf(msg, args...)
}

func Error(msg string, args ...interface{}) {
	log.Error().Msgf(msg, args...)
}

// Fatal logs the message and exits the process.
func Fatal(msg string, args ...interface{}) {
	log.Fatal().Msgf(msg, args...)
}
