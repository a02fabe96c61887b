package selfref

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a reference path: a map key or, when Index is
// not -1, an array slot.
type Segment struct {
	Name  string
	Index int
}

// Key returns a map-key segment.
func Key(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// Slot returns an array-index segment.
func Slot(i int) Segment {
	return Segment{Index: i}
}

// Build constructs a path string from a slice of segments.
//
// Examples:
//   - [{Name: "functions"}, {Name: "consumer"}] -> functions.consumer
//   - [{Name: "events"}, {Index: 0}, {Name: "http"}] -> events[0].http
//   - [{Name: "custom"}, {Name: "my.key"}] -> custom["my.key"]
func Build(segments []Segment) string {
	var b strings.Builder
	for i, segment := range segments {
		appendSegment(&b, segment, i == 0)
	}
	return b.String()
}

// join extends an already rendered path by one segment.
func join(prefix string, segment Segment) string {
	var b strings.Builder
	b.WriteString(prefix)
	appendSegment(&b, segment, prefix == "")
	return b.String()
}

func appendSegment(b *strings.Builder, segment Segment, first bool) {
	if segment.Index != -1 {
		fmt.Fprintf(b, "[%d]", segment.Index)
		return
	}
	if needsQuoting(segment.Name) {
		fmt.Fprintf(b, "[%q]", segment.Name)
		return
	}
	if !first {
		b.WriteByte('.')
	}
	b.WriteString(segment.Name)
}

func needsQuoting(name string) bool {
	return name == "" || strings.ContainsAny(name, ".[]\"")
}

// ParsePath splits a path produced by Build back into segments.
func ParsePath(path string) ([]Segment, error) {
	var segments []Segment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			if i == 0 || i == len(path)-1 {
				return nil, fmt.Errorf("path %q: unexpected '.' at offset %d", path, i)
			}
			i++
		case '[':
			if strings.HasPrefix(path[i+1:], `"`) {
				name, n, err := quotedKey(path, i)
				if err != nil {
					return nil, err
				}
				segments = append(segments, Key(name))
				i += n
				continue
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated '[' at offset %d", path, i)
			}
			inner := path[i+1 : i+end]
			idx, err := strconv.Atoi(inner)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q: invalid index %q", path, inner)
			}
			segments = append(segments, Slot(idx))
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, Key(path[i:i+end]))
			i += end
		}
	}
	return segments, nil
}

// quotedKey decodes the ["..."] segment starting at path[start] and returns
// the key and the segment's length. Escaped quotes do not close the key.
func quotedKey(path string, start int) (string, int, error) {
	j := start + 2
	for j < len(path) && path[j] != '"' {
		if path[j] == '\\' {
			j++
		}
		j++
	}
	if j+1 >= len(path) || path[j+1] != ']' {
		return "", 0, fmt.Errorf("path %q: unterminated quoted key at offset %d", path, start)
	}
	name, err := strconv.Unquote(path[start+1 : j+1])
	if err != nil {
		return "", 0, fmt.Errorf("path %q: %w", path, err)
	}
	return name, j + 2 - start, nil
}
