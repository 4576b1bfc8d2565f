package initializer

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lmittmann/tint"
)

// setupLogger builds the process logger from cfg, writes to stdout and
// installs it as the slog default.
func setupLogger(cfg *config.Log) *slog.Logger {
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// newLogger picks the handler for cfg.Format: tint for colored
// development output, charmbracelet/log for text and json.
func newLogger(cfg *config.Log, w io.Writer) *slog.Logger {
	if cfg.Format == "tint" {
		timeFormat := cfg.TimeFormat
		if timeFormat == "" {
			timeFormat = time.Kitchen
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.Level(cfg.Level),
			TimeFormat: timeFormat,
			AddSource:  true,
		}))
	}

	formattersMap := map[string]log.Formatter{
		"json": log.JSONFormatter,
		"text": log.TextFormatter,
	}
	formatter := log.TextFormatter
	if f, ok := formattersMap[cfg.Format]; ok {
		formatter = f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(logStyles())
	return slog.New(logger)
}

func logStyles() *log.Styles {
	styles := log.DefaultStyles()
	infoTxtColor := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnTxtColor := lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorTxtColor := lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}
	debugTxtColor := lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}

	level := func(label string, color lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().SetString(label).Bold(true).Padding(0, 1).Foreground(color)
	}
	styles.Levels[log.ErrorLevel] = level("ERR", errorTxtColor)
	styles.Levels[log.WarnLevel] = level("WRN", warnTxtColor)
	styles.Levels[log.InfoLevel] = level("INF", infoTxtColor)
	styles.Levels[log.DebugLevel] = level("DBG", debugTxtColor)

	// Identity and money keys get their own colors.
	keyColors := map[string]lipgloss.AdaptiveColor{
		"error":          errorTxtColor,
		"owner":          infoTxtColor,
		"user_id":        infoTxtColor,
		"kind":           warnTxtColor,
		"amount":         warnTxtColor,
		"transaction_id": debugTxtColor,
		"account_id":     debugTxtColor,
		"prefix":         debugTxtColor,
		"caller":         debugTxtColor,
		"time":           debugTxtColor,
	}
	for key, color := range keyColors {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(color)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}
