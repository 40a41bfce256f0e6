// Package logtest provides a LogHandler that keeps lines in memory for tests.
package logtest

import (
	"fmt"
	"strings"
	"sync"
)

type Line struct {
	Level   string
	Feature string
	ID      string
	Text    string
}

type Recorder struct {
	mu    sync.Mutex
	lines []Line
}

func (r *Recorder) add(line Line) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *Recorder) FeatureEvent(feature, id, text string) {
	r.add(Line{Level: "info", Feature: feature, ID: id, Text: text})
}

func (r *Recorder) Debug(text string) {
	r.add(Line{Level: "debug", Text: text})
}

func (r *Recorder) Warn(text string) {
	r.add(Line{Level: "warn", Text: text})
}

func (r *Recorder) Error(text string, err error) {
	r.add(Line{Level: "error", Text: fmt.Sprintf("%s: %v", text, err)})
}

func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines...)
}

// Errors returns the text of every error line.
func (r *Recorder) Errors() []string {
	var out []string
	for _, l := range r.Lines() {
		if l.Level == "error" {
			out = append(out, l.Text)
		}
	}
	return out
}

// Contains reports whether any line text contains s.
func (r *Recorder) Contains(s string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l.Text, s) {
			return true
		}
	}
	return false
}
