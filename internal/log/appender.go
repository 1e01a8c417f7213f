package log

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/natefinch/lumberjack.v2"
)

type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

// buildOutput assembles the writer stack from the appender list. An empty
// list falls back to plain console output.
func buildOutput(appenders []AppenderConfig) (io.Writer, error) {
	mw := NewMultiWriter()

	if len(appenders) == 0 {
		return mw.Add(os.Stdout), nil
	}

	for _, ap := range appenders {
		switch ap.Type {
		case "console":
			mw.Add(os.Stdout)
		case "file":
			var opts FileAppenderOptions
			if err := mapstructure.Decode(ap.Options, &opts); err != nil {
				return nil, fmt.Errorf("log: invalid file appender options: %w", err)
			}
			if opts.Filename == "" {
				return nil, fmt.Errorf("log: file appender requires a filename")
			}
			mw.Add(&lumberjack.Logger{
				Filename:   opts.Filename,
				MaxSize:    opts.MaxSize,
				MaxAge:     opts.MaxAge,
				MaxBackups: opts.MaxBackups,
				Compress:   opts.Compress,
			})
		default:
			return nil, fmt.Errorf("log: unknown appender type %q", ap.Type)
		}
	}

	return mw, nil
}
