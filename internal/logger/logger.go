package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"CaseReview/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerService owns the run's log file and the zap logger that writes to it
// and to the console.
type LoggerService struct {
	mu            sync.Mutex
	file          *os.File
	console       io.Writer
	currentLog    string
	retentionDays int
	folderPath    string
	level         zapcore.Level
	runID         string
	zl            *zap.Logger
}

func NewLoggerService(cfg config.LogConfig, runID string) *LoggerService {
	folder := cfg.Folder
	if folder == "" {
		folder = config.DefaultLogFolder
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	return &LoggerService{
		console:       os.Stdout,
		retentionDays: cfg.RetentionDays,
		folderPath:    folder,
		level:         level,
		runID:         runID,
		zl:            zap.NewNop(),
	}
}

func (l *LoggerService) Name() string {
	return "logger"
}

// SetConsole replaces stdout as the human-readable sink. Call before Start.
func (l *LoggerService) SetConsole(w io.Writer) {
	l.console = w
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	l.zipAndCleanOldLogs(time.Now())

	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentLog = logFile

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		l.level,
	)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(l.console)),
		l.level,
	)
	l.zl = zap.New(zapcore.NewTee(fileCore, consoleCore)).With(zap.String("run_id", l.runID))
	l.zl.Info("[LoggerService] Started", zap.String("file", logFile))
	return nil
}

func (l *LoggerService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.zl.Info("[LoggerService] Stopping")
	_ = l.zl.Sync()
	l.zl = zap.NewNop()
	err := l.file.Close()
	l.file = nil
	return err
}

// Logger returns the run logger; a no-op logger before Start.
func (l *LoggerService) Logger() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

// CurrentFile is the path of the log file opened by Start.
func (l *LoggerService) CurrentFile() string {
	return l.currentLog
}

func (l *LoggerService) LogAudit(msg string, fields ...zap.Field) {
	l.Logger().Info("[AUDIT] "+msg, fields...)
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(l.folderPath, fmt.Sprintf("casereview_%s.log", timestamp))
}

// zipAndCleanOldLogs moves .log files last modified before the retention
// cutoff into a dated zip archive.
func (l *LoggerService) zipAndCleanOldLogs(now time.Time) {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}

	var stale []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		info, err := f.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, f.Name())
	}
	if len(stale) == 0 {
		return
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", now.Format("20060102_150405")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	for _, name := range stale {
		fullPath := filepath.Join(l.folderPath, name)
		w, err := zipWriter.Create(name)
		if err != nil {
			continue
		}
		src, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr == nil {
			os.Remove(fullPath)
		}
	}
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

// L returns the global run logger, or a no-op logger when none is set.
func L() *zap.Logger {
	if GlobalLogger == nil {
		return zap.NewNop()
	}
	return GlobalLogger.Logger()
}
