package parser

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docling/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := doctree.New(docName(filename))
	lines := newLineIndex(src)

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesKeepEnd)

	var current strings.Builder
	paraStart, paraEnd := -1, -1
	offset := 0

	flush := func() {
		if current.Len() > 0 {
			doc.Add(doctree.Node{
				Kind:     doctree.KindParagraph,
				Text:     current.String(),
				Position: lines.position(paraStart, paraEnd),
			})
			current.Reset()
		}
		paraStart, paraEnd = -1, -1
	}

	for scanner.Scan() {
		raw := scanner.Text()
		lineStart := offset
		offset += len(raw)

		line := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		} else {
			paraStart = lineStart
		}
		current.WriteString(line)
		paraEnd = lineStart + len(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return doc, nil
}

// scanLinesKeepEnd is bufio.ScanLines without dropping the line terminator,
// so byte offsets can be tracked across lines.
func scanLinesKeepEnd(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
