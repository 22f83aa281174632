package contract

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

// Color variables for console output.
var (
	MetColor    = color.New(color.FgGreen, color.Bold) // MetColor marks a period at or above its goal.
	BelowColor  = color.New(color.FgRed, color.Bold)   // BelowColor marks a period under its goal.
	NoDataColor = color.New(color.FgHiBlack)           // NoDataColor marks a period without a value.
)

// GetColorLabel returns a colored goal label for console output (table).
// It uses schema.GetGoalLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(value float64, goal *float64) string {
	text := schema.GetGoalLabel(value, goal)

	switch text {
	case schema.GoalMetValue:
		return MetColor.Sprint(text)
	case schema.BelowGoalValue:
		return BelowColor.Sprint(text)
	case schema.NoDataValue:
		return NoDataColor.Sprint(text)
	default:
		return text
	}
}

// FormatValue renders a series value with the given precision. Missing values are blank.
func FormatValue(v float64, precision int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return fmt.Sprintf("%.*f", precision, v)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	log.Fatal().Err(err).Msg(msg)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	log.Warn().Err(err).Msg(msg)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".kpiscore_cache.db"
	}
	return filepath.Join(homeDir, ".kpiscore_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".kpiscore_history.db"
	}
	return filepath.Join(homeDir, ".kpiscore_history.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
