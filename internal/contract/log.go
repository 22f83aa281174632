package contract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoadDotEnv loads KPISCORE_* variables from a .env file in the working directory.
// Variables already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// InitLogger initializes the global logger. Console output goes to stderr; when logFile
// is set, a rotating file receives the same events.
func InitLogger(level, logFile string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("invalid log level '%s'. must be trace, debug, info, warn, error", level)
	}
	zerolog.SetGlobalLevel(lvl)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	writers := []io.Writer{consoleWriter}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory for %q: %w", logFile, err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    16, // megabytes
			MaxBackups: 32,
			MaxAge:     365, // days
			Compress:   true,
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
	return nil
}
