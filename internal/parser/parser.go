// Package parser reads subject timetables from markdown and YAML files.
//
// A markdown timetable is a sequence of blocks separated by "---":
//
//	S: Algorithms
//	C: blue
//	D: Tue, Thu
//
// A YAML timetable lists the same fields under a "subjects" key.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conorfennell/lectern/internal/domain"
)

const (
	subjectPrefix = "S:"
	colourPrefix  = "C:"
	daysPrefix    = "D:"
)

type state int

const (
	seeking state = iota
	readingSubject
)

// Entry is one subject as written in a timetable file. Days are kept as
// written until Weekdays is called.
type Entry struct {
	Name   string   `yaml:"name"`
	Colour string   `yaml:"colour"`
	Days   []string `yaml:"days"`
	Line   int      `yaml:"-"` // markdown line of S:, or 1-based position in a YAML list
}

// Weekdays resolves the entry's day tokens to weekday indices.
func (e Entry) Weekdays() ([]int, error) {
	days := make([]int, 0, len(e.Days))
	for _, token := range e.Days {
		d, err := domain.ParseWeekday(token)
		if err != nil {
			return nil, err
		}
		days = append(days, int(d))
	}
	return days, nil
}

type yamlTimetable struct {
	Subjects []Entry `yaml:"subjects"`
}

// Supported reports whether path has a timetable extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".yaml", ".yml":
		return true
	}
	return false
}

// ParseFile reads a timetable, choosing the format from the extension.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(file)
	default:
		return Parse(file)
	}
}

// ParseYAML reads a YAML timetable.
func ParseYAML(r io.Reader) ([]Entry, error) {
	var doc yamlTimetable
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode timetable: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Subjects))
	for i, e := range doc.Subjects {
		e.Name = strings.TrimSpace(e.Name)
		e.Colour = strings.TrimSpace(e.Colour)
		e.Line = i + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// Parse reads a markdown timetable. Lines without a known prefix are
// ignored, so headings and notes can sit between blocks.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	currentState := seeking
	lineNo := 0

	finishEntry := func() {
		if current.Name != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "---" {
			finishEntry()
			continue
		}

		switch {
		case strings.HasPrefix(line, subjectPrefix):
			if currentState != seeking { // a new subject always starts a new entry
				finishEntry()
			}
			currentState = readingSubject
			current.Name = value(line, subjectPrefix)
			current.Line = lineNo
		case strings.HasPrefix(line, colourPrefix) && currentState == readingSubject:
			current.Colour = value(line, colourPrefix)
		case strings.HasPrefix(line, daysPrefix) && currentState == readingSubject:
			current.Days = append(current.Days, splitDays(value(line, daysPrefix))...)
		}
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func value(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

func splitDays(s string) []string {
	var days []string
	for _, token := range strings.Split(s, ",") {
		if token = strings.TrimSpace(token); token != "" {
			days = append(days, token)
		}
	}
	return days
}
