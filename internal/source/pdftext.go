package source

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ContentText recovers the text shown by a PDF page content stream. Text
// objects become lines; a large gap in a TJ array becomes a space.
func ContentText(content []byte) string {
	s := &contentScanner{data: content}
	var (
		b       strings.Builder
		operand []string
		inArray bool
		array   []string
	)
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	for {
		tok, kind, ok := s.next()
		if !ok {
			break
		}
		switch kind {
		case tokString:
			if inArray {
				array = append(array, tok)
			} else {
				operand = append(operand, tok)
			}
		case tokArrayStart:
			inArray = true
			array = array[:0]
		case tokArrayEnd:
			inArray = false
		case tokNumber:
			if inArray {
				if n, err := strconv.ParseFloat(tok, 64); err == nil && n < -200 {
					array = append(array, " ")
				}
			}
		case tokOperator:
			switch tok {
			case "Tj":
				for _, o := range operand {
					b.WriteString(o)
				}
			case "'", "\"":
				newline()
				for _, o := range operand {
					b.WriteString(o)
				}
			case "TJ":
				for _, a := range array {
					b.WriteString(a)
				}
				array = array[:0]
			case "T*", "Td", "TD", "ET":
				newline()
			case "BI":
				s.skipInlineImage()
			}
			operand = operand[:0]
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

type tokenKind int

const (
	tokOther tokenKind = iota
	tokString
	tokNumber
	tokOperator
	tokArrayStart
	tokArrayEnd
)

type contentScanner struct {
	data []byte
	pos  int
}

func (s *contentScanner) next() (string, tokenKind, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			return decodePDFString(s.literal()), tokString, true
		case c == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2
				return "<<", tokOther, true
			}
			return decodePDFString(s.hex()), tokString, true
		case c == '>':
			s.pos++
			if s.pos < len(s.data) && s.data[s.pos] == '>' {
				s.pos++
			}
			return ">>", tokOther, true
		case c == '[':
			s.pos++
			return "[", tokArrayStart, true
		case c == ']':
			s.pos++
			return "]", tokArrayEnd, true
		case c == '/':
			start := s.pos
			s.pos++
			s.word()
			return string(s.data[start:s.pos]), tokOther, true
		default:
			start := s.pos
			if c == '{' || c == '}' {
				s.pos++
				return string(c), tokOther, true
			}
			s.word()
			if s.pos == start {
				s.pos++
				continue
			}
			tok := string(s.data[start:s.pos])
			if _, err := strconv.ParseFloat(tok, 64); err == nil {
				return tok, tokNumber, true
			}
			return tok, tokOperator, true
		}
	}
	return "", tokOther, false
}

func (s *contentScanner) word() {
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
}

// literal reads a (...) string with nesting and escapes.
func (s *contentScanner) literal() []byte {
	s.pos++ // (
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <...> string.
func (s *contentScanner) hex() []byte {
	s.pos++ // <
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out, err := hex.DecodeString(string(digits))
	if err != nil {
		return nil
	}
	return out
}

// skipInlineImage advances past the binary data of an inline image.
func (s *contentScanner) skipInlineImage() {
	idx := bytes.Index(s.data[s.pos:], []byte("EI"))
	for idx >= 0 {
		end := s.pos + idx + 2
		if (end == len(s.data) || isPDFSpace(s.data[end])) && s.pos+idx > 0 && isPDFSpace(s.data[s.pos+idx-1]) {
			s.pos = end
			return
		}
		next := bytes.Index(s.data[s.pos+idx+2:], []byte("EI"))
		if next < 0 {
			break
		}
		idx += 2 + next
	}
	s.pos = len(s.data)
}

// decodePDFString maps string bytes to text: UTF-16BE with a byte order
// mark, otherwise one byte per character. Control bytes are dropped.
func decodePDFString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		u := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			u = append(u, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(u))
	}
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c == '\n' || c == '\r' || c == '\t':
			b.WriteByte(' ')
		case c < 0x20 || c == 0x7F:
		default:
			b.WriteRune(rune(c))
		}
	}
	return b.String()
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
