package config

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
)

// LogConfig selects where log output goes.
type LogConfig struct {
	// File is the log file; empty logs to stdout
	File string `yaml:"file"`

	// MaxSize is the size in megabytes at which the file is rotated
	MaxSize int `yaml:"maxSize"`

	// MaxAge is the number of days rotated files are kept
	MaxAge int `yaml:"maxAge"`
}

// SetLogger points the standard logger at a rotating log file, or at stdout
// when no file is configured. The returned closer releases the file.
func (c *LogConfig) SetLogger() io.Closer {
	if c == nil || c.File == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil)
	}
	l := &lumberjack.Logger{
		Filename: c.File,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	return l
}
