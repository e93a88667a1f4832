package manifest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const indent = "    "

// Render produces canonical manifest text. Every instruction is rendered on
// its own lines, arguments indented by four spaces, terminated by ";".
// Instructions are separated by one blank line.
func Render(m *Manifest) (string, error) {
	if m == nil {
		return "", newError(KindRender, "MAN-RENDER-001", "nil manifest")
	}
	var sb strings.Builder
	for i, in := range m.Instructions {
		if i > 0 {
			sb.WriteString("\n")
		}
		if in.Op != OpCallMethod {
			return "", newError(KindRender, "MAN-RENDER-002", fmt.Sprintf("unsupported instruction %q", in.Op))
		}
		sb.WriteString(in.Op)
		sb.WriteString("\n")

		lines := make([]string, 0, len(in.Args)+2)
		recv, err := renderValue(AddressText(in.Receiver))
		if err != nil {
			return "", err
		}
		lines = append(lines, recv)
		method, err := quote(in.Method)
		if err != nil {
			return "", err
		}
		lines = append(lines, method)
		for _, v := range in.Args {
			s, err := renderValue(v)
			if err != nil {
				return "", err
			}
			lines = append(lines, s)
		}
		for _, l := range lines {
			sb.WriteString(indent)
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString(";\n")
	}
	return sb.String(), nil
}

func renderValue(v Value) (string, error) {
	switch v.Type {
	case TypeString:
		return quote(v.Text)
	case TypeDecimal, TypeAddress:
		q, err := quote(v.Text)
		if err != nil {
			return "", err
		}
		return v.Type.String() + "(" + q + ")", nil
	case TypeBlob:
		return "Blob(\"" + v.Hash.Hex() + "\")", nil
	default:
		return "", newError(KindRender, "MAN-RENDER-003", fmt.Sprintf("unsupported value type %s", v.Type))
	}
}

// unrenderable describes the first part of s a string literal cannot carry:
// an invalid UTF-8 byte, or a control character other than the escaped
// '\n', '\r' and '\t'. It returns "" when s is renderable.
func unrenderable(s string) string {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			return fmt.Sprintf("invalid UTF-8 at byte %d", i)
		case unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t':
			return fmt.Sprintf("control character %U", r)
		}
		i += size
	}
	return ""
}

// quote renders s as a string literal. Quotes, backslashes and the three
// whitespace controls are escaped; anything unrenderable is an error.
func quote(s string) (string, error) {
	if why := unrenderable(s); why != "" {
		return "", newError(KindRender, "MAN-RENDER-004", "string contains "+why)
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String(), nil
}
