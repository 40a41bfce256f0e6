package internal

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Importance prefixes every console line and is stored with the log record.
type Importance string

const (
	Info    Importance = " "
	Warning Importance = "?"
	Error   Importance = "!"
	Raw     Importance = "-"
)

const (
	logTimeLayout = "2006-01-02 15:04:05"
	writerBuffer  = 100
)

// Logger writes lines from a single goroutine: to the console and, once a
// database is set, to the log collection. Info lines stay off the console
// when a database is set, unless debug mode is on.
type Logger struct {
	location  *time.Location
	writer    chan *LogEvent
	done      chan struct{}
	mux       sync.RWMutex
	stopped   bool

	settingsMux sync.RWMutex
	database    Database
	debugMode   bool
}

type LogEvent struct {
	Importance Importance
	Message    *FeatureLogMessage
}

func NewLogger(location *time.Location) *Logger {
	if location == nil {
		location = time.UTC
	}
	logger := &Logger{
		location: location,
		writer:   make(chan *LogEvent, writerBuffer),
		done:     make(chan struct{}),
	}
	go logger.startWriter()
	return logger
}

func (l *Logger) startWriter() {
	defer close(l.done)
	for event := range l.writer {
		database, debugMode := l.settings()
		message := event.Message
		if event.Importance != Info || database == nil || debugMode {
			log.Printf("%s [%s] %s: %s", event.Importance, message.PartnerId, message.Feature, message.Text)
		}
		if database == nil {
			continue
		}
		if err := database.WriteLogMessage(message); err != nil {
			log.Printf("%s write log to database failed: %v", Error, err)
		}
	}
}

// Stop flushes pending lines and ends the writer; later events are dropped.
func (l *Logger) Stop() {
	l.mux.Lock()
	if !l.stopped {
		l.stopped = true
		close(l.writer)
	}
	l.mux.Unlock()
	<-l.done
}

func (l *Logger) SetDebugMode(debugMode bool) {
	l.settingsMux.Lock()
	l.debugMode = debugMode
	l.settingsMux.Unlock()
}

func (l *Logger) SetDatabase(database Database) {
	l.settingsMux.Lock()
	l.database = database
	l.settingsMux.Unlock()
}

func (l *Logger) settings() (Database, bool) {
	l.settingsMux.RLock()
	defer l.settingsMux.RUnlock()
	return l.database, l.debugMode
}

// FeatureEvent logs a line about an operation; id is the partner key.
func (l *Logger) FeatureEvent(feature, id, text string) {
	l.logEvent(Info, feature, id, text)
}

func (l *Logger) Debug(text string) {
	l.logEvent(Info, "info", "", text)
}

func (l *Logger) Warn(text string) {
	l.logEvent(Warning, "warning", "", text)
}

func (l *Logger) Error(text string, err error) {
	l.logEvent(Error, "error", "", fmt.Sprintf("%s: %s", text, err))
}

// RawDataEvent logs wire payloads, only in debug mode.
func (l *Logger) RawDataEvent(direction, data string) {
	if _, debugMode := l.settings(); debugMode {
		l.logEvent(Raw, "raw", "", fmt.Sprintf("%s: %s", direction, data))
	}
}

func (l *Logger) logEvent(importance Importance, feature, id, text string) {
	if id == "" {
		id = "*"
	}
	now := time.Now()
	event := &LogEvent{
		Importance: importance,
		Message: &FeatureLogMessage{
			Time:       now.In(l.location).Format(logTimeLayout),
			TimeStamp:  now.UTC(),
			Importance: string(importance),
			Feature:    feature,
			PartnerId:  id,
			Text:       text,
		},
	}
	l.mux.RLock()
	defer l.mux.RUnlock()
	if l.stopped {
		return
	}
	l.writer <- event
}
