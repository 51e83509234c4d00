package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Position is a 1-based line and column inside a text buffer.
type Position struct {
	Line   int
	Column int
}

// PositionAt computes the position of byte offset off in buf. A leading UTF-8
// BOM is not counted, and "\r\n" and lone "\r" both end a line.
func PositionAt(buf string, off int) Position {
	cur := 0
	if strings.HasPrefix(buf, "\xef\xbb\xbf") {
		cur = 3
	}
	if off > len(buf) {
		off = len(buf)
	}
	line, lineStart := 1, cur
	for cur < off {
		c := buf[cur]
		cur++
		switch c {
		case '\n':
			line++
			lineStart = cur
		case '\r':
			if cur < off && buf[cur] == '\n' {
				cur++
			}
			line++
			lineStart = cur
		}
	}
	if off < lineStart {
		off = lineStart
	}
	return Position{Line: line, Column: 1 + utf8.RuneCountInString(buf[lineStart:off])}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
