package damage

import (
	"fmt"
	"strings"
)

// Header holds the three fixed lines that open every message.
type Header struct {
	Organization string
	FormFileName string
	FormVersion  string
}

// TagMap is an insertion-ordered tag to raw value mapping. Setting an existing
// tag replaces its value but keeps its original position.
type TagMap struct {
	order  []string
	values map[string]string
}

func NewTagMap() *TagMap {
	return &TagMap{values: make(map[string]string)}
}

func (m *TagMap) Set(tag, value string) {
	if _, ok := m.values[tag]; !ok {
		m.order = append(m.order, tag)
	}
	m.values[tag] = value
}

func (m *TagMap) Get(tag string) (string, bool) {
	v, ok := m.values[tag]
	return v, ok
}

// Tags returns the tags in first-seen order.
func (m *TagMap) Tags() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *TagMap) Len() int { return len(m.order) }

// Scan splits wire text into its header and body tags.
//
// Body lines are "<tag>: [<value>]". Anything before the first colon that is
// not a letter or digit is dropped from the tag, so "27a.:" yields "27a". The
// value runs from the first '[' after the colon to the next ']', or to the end
// of the line when the bracket is never closed. Values are returned untrimmed.
//
// Two leniencies are deliberate because operators type these messages by hand:
// lines without a colon or without a '[' are skipped, and a repeated tag
// overwrites the earlier value.
func Scan(text string) (Header, *TagMap, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if len(lines) < 5 {
		return Header{}, nil, &FormatError{Reason: fmt.Sprintf("message too short: %d lines, need at least 5", len(lines))}
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != Sentinel {
		return Header{}, nil, &FormatError{Reason: fmt.Sprintf("last line must be %q, got %q", Sentinel, last)}
	}

	header, err := scanHeader(lines[:3])
	if err != nil {
		return Header{}, nil, err
	}

	tags := NewTagMap()
	for _, line := range lines[3 : len(lines)-1] {
		tag, value, ok := scanLine(line)
		if !ok {
			continue
		}
		tags.Set(tag, value)
	}
	return header, tags, nil
}

func scanHeader(lines []string) (Header, error) {
	var h Header
	h.Organization = strings.TrimSpace(lines[0])

	formFile := strings.TrimSpace(lines[1])
	if !strings.HasPrefix(formFile, FormFilePrefix) {
		return Header{}, &FormatError{Reason: fmt.Sprintf("second line must start with %q, got %q", FormFilePrefix, formFile)}
	}
	h.FormFileName = strings.TrimSpace(strings.TrimPrefix(formFile, FormFilePrefix))

	version := strings.TrimSpace(lines[2])
	if !strings.HasPrefix(version, FormVersionPrefix) {
		return Header{}, &FormatError{Reason: fmt.Sprintf("third line must start with %q, got %q", FormVersionPrefix, version)}
	}
	h.FormVersion = strings.TrimSpace(strings.TrimPrefix(version, FormVersionPrefix))
	return h, nil
}

func scanLine(line string) (tag, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	tag = alnum(line[:colon])
	if tag == "" {
		return "", "", false
	}
	rest := line[colon+1:]
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return "", "", false
	}
	value = rest[open+1:]
	if end := strings.IndexByte(value, ']'); end >= 0 {
		value = value[:end]
	}
	return tag, value, true
}

func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, s)
}
