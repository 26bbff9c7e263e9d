package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"leadsync/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileHook routes records to per-category rotated files based on the
// "type" field set by the helpers in formatter.go.
type FileHook struct {
	logConfig *config.LogConfig
	writers   map[string]io.Writer
	formatter logrus.Formatter
	mutex     sync.Mutex
}

// NewFileHook creates the hook and its default writer.
func NewFileHook(logConfig *config.LogConfig) *FileHook {
	hook := &FileHook{
		logConfig: logConfig,
		writers:   make(map[string]io.Writer),
		formatter: &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		},
	}
	hook.initDefaultWriter()
	return hook
}

// initDefaultWriter opens the main log file when file output is enabled.
func (hook *FileHook) initDefaultWriter() {
	if hook.logConfig.Output == "file" && hook.logConfig.FilePath != "" {
		_ = os.MkdirAll(filepath.Dir(hook.logConfig.FilePath), 0755)
		hook.writers["default"] = &lumberjack.Logger{
			Filename:   hook.logConfig.FilePath,
			MaxSize:    hook.logConfig.MaxSize,
			MaxBackups: hook.logConfig.MaxBackups,
			MaxAge:     hook.logConfig.MaxAge,
			Compress:   hook.logConfig.Compress,
		}
	}
}

// Levels reports the levels the hook handles.
func (hook *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes the entry to the file matching its "type" field.
func (hook *FileHook) Fire(entry *logrus.Entry) error {
	logType := "default"
	if lt, ok := entry.Data["type"]; ok {
		switch t := lt.(type) {
		case LogType:
			logType = string(t)
		case string:
			logType = t
		}
	}

	writer := hook.getWriter(logType)
	if writer == nil {
		writer = hook.getWriter("default")
		if writer == nil {
			return nil
		}
	}

	formatted, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.mutex.Lock()
	defer hook.mutex.Unlock()
	_, err = writer.Write(formatted)
	return err
}

// getWriter returns (lazily creating) the writer for a log category.
func (hook *FileHook) getWriter(logType string) io.Writer {
	hook.mutex.Lock()
	defer hook.mutex.Unlock()

	if writer, exists := hook.writers[logType]; exists {
		return writer
	}
	if hook.logConfig.Output != "file" || hook.logConfig.FilePath == "" {
		return nil
	}

	logDir := filepath.Dir(hook.logConfig.FilePath)

	var filename string
	switch logType {
	case string(LogTypeAccess):
		filename = filepath.Join(logDir, "access.log")
	case string(LogTypeSync):
		filename = filepath.Join(logDir, "sync.log")
	case string(LogTypeBusiness):
		filename = filepath.Join(logDir, "business.log")
	case string(LogTypeError):
		filename = filepath.Join(logDir, "error.log")
	case string(LogTypeSystem):
		filename = filepath.Join(logDir, "system.log")
	default:
		return hook.writers["default"]
	}

	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    hook.logConfig.MaxSize,
		MaxBackups: hook.logConfig.MaxBackups,
		MaxAge:     hook.logConfig.MaxAge,
		Compress:   hook.logConfig.Compress,
	}
	hook.writers[logType] = writer
	return writer
}
