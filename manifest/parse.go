package manifest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"xdao.co/radup/blob"
)

// Parse reads manifest text in the grammar produced by Render and attaches
// blobs. Only CALL_METHOD instructions and the String, Decimal, Address and
// Blob literals are recognised. Parse performs no semantic checks; use
// StaticValidate for those.
func Parse(text string, blobs [][]byte) (*Manifest, error) {
	if !utf8.ValidString(text) {
		return nil, newError(KindParse, "MAN-PARSE-001", "manifest must be valid UTF-8")
	}
	p := &parser{src: text, line: 1}
	m := &Manifest{Blobs: blobs}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		in, err := p.instruction()
		if err != nil {
			return nil, err
		}
		m.Instructions = append(m.Instructions, in)
	}
	return m, nil
}

type parser struct {
	src  string
	pos  int
	line int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) errorf(ruleID, format string, a ...any) error {
	return newError(KindParse, ruleID, fmt.Sprintf("line %d: ", p.line)+fmt.Sprintf(format, a...))
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch c := p.src[p.pos]; c {
		case '\n':
			p.line++
			p.pos++
		case ' ', '\t', '\r':
			p.pos++
		case '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte, ruleID string) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf(ruleID, "expected %q", c)
	}
	p.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) instruction() (Instruction, error) {
	op := p.ident()
	if op != OpCallMethod {
		if op == "" {
			return Instruction{}, p.errorf("MAN-PARSE-002", "expected instruction, found %q", p.peek())
		}
		return Instruction{}, p.errorf("MAN-PARSE-002", "unsupported instruction %q", op)
	}

	recv, err := p.value()
	if err != nil {
		return Instruction{}, err
	}
	if recv.Type != TypeAddress {
		return Instruction{}, p.errorf("MAN-PARSE-003", "%s receiver must be an Address", op)
	}
	method, err := p.value()
	if err != nil {
		return Instruction{}, err
	}
	if method.Type != TypeString {
		return Instruction{}, p.errorf("MAN-PARSE-004", "%s method name must be a string literal", op)
	}

	in := Instruction{Op: op, Receiver: recv.Text, Method: method.Text}
	for {
		p.skipSpace()
		if p.eof() {
			return Instruction{}, p.errorf("MAN-PARSE-005", "unterminated instruction, expected ';'")
		}
		if p.peek() == ';' {
			p.pos++
			return in, nil
		}
		v, err := p.value()
		if err != nil {
			return Instruction{}, err
		}
		in.Args = append(in.Args, v)
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	if p.peek() == '"' {
		s, err := p.stringLit()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	}
	name := p.ident()
	if name == "" {
		return Value{}, p.errorf("MAN-PARSE-007", "expected value, found %q", p.peek())
	}
	if err := p.expect('(', "MAN-PARSE-007"); err != nil {
		return Value{}, err
	}
	p.skipSpace()
	s, err := p.stringLit()
	if err != nil {
		return Value{}, err
	}
	if err := p.expect(')', "MAN-PARSE-007"); err != nil {
		return Value{}, err
	}
	switch name {
	case "Decimal":
		return Decimal(s), nil
	case "Address":
		return AddressText(s), nil
	case "Blob":
		h, err := blob.ParseHash(s)
		if err != nil || strings.ToLower(s) != s {
			return Value{}, p.errorf("MAN-PARSE-006", "Blob reference must be 64 lowercase hex characters")
		}
		return BlobRef(h), nil
	default:
		return Value{}, p.errorf("MAN-PARSE-007", "unsupported value type %q", name)
	}
}

func (p *parser) stringLit() (string, error) {
	if p.peek() != '"' {
		return "", p.errorf("MAN-PARSE-008", "expected string literal")
	}
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("MAN-PARSE-008", "unterminated string literal")
		}
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return sb.String(), nil
		case '\n':
			return "", p.errorf("MAN-PARSE-008", "newline in string literal")
		case '\\':
			p.pos++
			if p.eof() {
				return "", p.errorf("MAN-PARSE-008", "unterminated string literal")
			}
			switch e := p.src[p.pos]; e {
			case '"', '\\':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				return "", p.errorf("MAN-PARSE-009", "invalid escape \\%c", e)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}
