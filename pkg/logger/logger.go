// Package logger 基于 logrus 的全局日志，支持 lumberjack 文件轮转。
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger 全局日志实例，Init 之前为 nil
	Logger *logrus.Logger

	currentLogFile string
	logMu          sync.Mutex
)

// Entry 日志条目类型别名，便于各包持有组件日志器
type Entry = logrus.Entry

// Config 日志配置
type Config struct {
	Level      string // debug / info / warn / error
	OutputFile string // 为空则只输出到控制台
	MaxSize    int    // 单个日志文件上限（MB）
	MaxBackups int    // 保留的轮转文件数
	MaxAge     int    // 轮转文件保留天数
	Compress   bool   // 是否压缩轮转文件
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
		ForceColors:     true,
	}
}

// buildOutput 组合控制台与可选的轮转文件输出
func buildOutput(config Config) (io.Writer, error) {
	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	return io.MultiWriter(writers...), nil
}

// Init 初始化全局日志。同时配置 logrus 标准实例，
// 直接使用 logrus 包函数的代码也会写入同一目标。
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	out, err := buildOutput(config)
	if err != nil {
		return err
	}

	logger := logrus.New()
	for _, l := range []*logrus.Logger{logger, logrus.StandardLogger()} {
		l.SetLevel(level)
		l.SetFormatter(textFormatter())
		l.SetOutput(out)
	}

	currentLogFile = config.OutputFile
	Logger = logger
	return nil
}

// InitDefault 以默认配置初始化（info 级别，logs/mirror.log，100MB 轮转）
func InitDefault() error {
	return Init(Config{
		Level:      "info",
		OutputFile: "logs/mirror.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	})
}

func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Warn(args ...interface{}) {
	if Logger != nil {
		Logger.Warn(args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Error(args ...interface{}) {
	if Logger != nil {
		Logger.Error(args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// WithField 创建带字段的日志条目；未初始化时返回独立的空实例，避免 panic
func WithField(key string, value interface{}) *Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.NewEntry(logrus.New())
}

// WithFields 创建带多个字段的日志条目
func WithFields(fields logrus.Fields) *Entry {
	if Logger != nil {
		return Logger.WithFields(fields)
	}
	return logrus.NewEntry(logrus.New())
}

// Component 创建带 component 字段的组件日志器
func Component(name string) *Entry {
	return WithField("component", name)
}

// GetCurrentLogFile 当前日志文件路径
func GetCurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogFile
}
