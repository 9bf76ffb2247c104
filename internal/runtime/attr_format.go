package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// splitReplacementField parses the contents of a {...} replacement field
// (everything between the braces) into its field-name and format-spec
// halves, the way "0:>10" splits into "0" and ">10".
func splitReplacementField(field string) (name, spec string) {
	if colon := strings.Index(field, ":"); colon >= 0 {
		return field[:colon], field[colon+1:]
	}
	return field, ""
}

// resolveFieldValue looks up a replacement field's value: an empty name
// takes the next positional argument, a numeric name indexes args
// directly, and anything else is a keyword lookup.
func resolveFieldValue(name string, args []Value, kwargs map[string]Value, autoIdx *int) (Value, error) {
	if name == "" {
		idx := *autoIdx
		if idx >= len(args) {
			return nil, fmt.Errorf("IndexError: Replacement index %d out of range", idx)
		}
		*autoIdx++
		return args[idx], nil
	}
	if idx, err := strconv.Atoi(name); err == nil {
		if idx >= len(args) {
			return nil, fmt.Errorf("IndexError: Replacement index %d out of range", idx)
		}
		return args[idx], nil
	}
	if v, ok := kwargs[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("KeyError: '%s'", name)
}

// strFormat implements str.format(), scanning template for {field} and
// {{/}} escapes and substituting each field's formatted value in place.
func (vm *VM) strFormat(template string, args []Value, kwargs map[string]Value) (Value, error) {
	var out strings.Builder
	autoIdx := 0

	for i := 0; i < len(template); {
		switch c := template[i]; c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("ValueError: Single '{' encountered in format string")
			}
			end += i + 1
			name, spec := splitReplacementField(template[i+1 : end])

			val, err := resolveFieldValue(name, args, kwargs, &autoIdx)
			if err != nil {
				return nil, err
			}
			formatted, err := vm.formatValue(val, spec)
			if err != nil {
				return nil, err
			}
			out.WriteString(formatted)
			i = end + 1

		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("ValueError: Single '}' encountered in format string")

		default:
			out.WriteByte(c)
			i++
		}
	}
	return &PyString{Value: out.String()}, nil
}

// formatValue renders val per spec, deferring to a user-defined
// __format__ override on instances before falling back to the builtin
// mini-language.
func (vm *VM) formatValue(val Value, spec string) (string, error) {
	inst, ok := val.(*PyInstance)
	if !ok {
		return vm.applyFormatSpec(val, spec), nil
	}
	result, found, err := vm.callDunder(inst, "__format__", &PyString{Value: spec})
	if !found {
		return vm.applyFormatSpec(val, spec), nil
	}
	if err != nil {
		return "", err
	}
	s, ok := result.(*PyString)
	if !ok {
		return "", fmt.Errorf("TypeError: __format__ must return a str, not %s", vm.typeName(result))
	}
	return s.Value, nil
}

// fieldSpec is the decoded form of a format-spec mini-language string
// like ">10", "<10", "^10", ".2f", "05d".
type fieldSpec struct {
	fill      string
	align     byte // 0 if unspecified
	sign      byte // 0, '+', '-', or ' '
	zeroFill  bool
	width     int
	precision int // -1 if unspecified
	kind      byte
}

// parseFieldSpec decodes a format-spec string into its component parts.
func parseFieldSpec(spec string) fieldSpec {
	fs := fieldSpec{fill: " ", precision: -1}
	i := 0

	switch {
	case len(spec) > 1 && isAlignChar(spec[1]):
		fs.fill, fs.align, i = string(spec[0]), spec[1], 2
	case len(spec) > 0 && isAlignChar(spec[0]):
		fs.align, i = spec[0], 1
	}

	if i < len(spec) && (spec[i] == '+' || spec[i] == '-' || spec[i] == ' ') {
		fs.sign = spec[i]
		i++
	}

	if i < len(spec) && spec[i] == '0' {
		fs.zeroFill = true
		fs.fill = "0"
		if fs.align == 0 {
			fs.align = '>'
		}
		i++
	}

	for i < len(spec) && isDigit(spec[i]) {
		fs.width = fs.width*10 + int(spec[i]-'0')
		i++
	}

	if i < len(spec) && spec[i] == '.' {
		i++
		fs.precision = 0
		for i < len(spec) && isDigit(spec[i]) {
			fs.precision = fs.precision*10 + int(spec[i]-'0')
			i++
		}
	}

	if i < len(spec) {
		fs.kind = spec[i]
	}
	return fs
}

func isAlignChar(b byte) bool { return b == '<' || b == '>' || b == '^' }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }

// renderKind converts val to its unpadded text form per the spec's type
// character (d, x, f, s, …), ignoring alignment/width/fill.
func (vm *VM) renderKind(val Value, fs fieldSpec) string {
	precision := fs.precision
	switch fs.kind {
	case 'f', 'F':
		if precision < 0 {
			precision = 6
		}
		return strconv.FormatFloat(vm.toFloat(val), 'f', precision, 64)
	case 'd':
		return strconv.FormatInt(vm.toInt(val), 10)
	case 'x':
		return strconv.FormatInt(vm.toInt(val), 16)
	case 'X':
		return strings.ToUpper(strconv.FormatInt(vm.toInt(val), 16))
	case 'o':
		return strconv.FormatInt(vm.toInt(val), 8)
	case 'b':
		return strconv.FormatInt(vm.toInt(val), 2)
	case 'e', 'E', 'g', 'G':
		if precision < 0 {
			precision = 6
		}
		return strconv.FormatFloat(vm.toFloat(val), fs.kind, precision, 64)
	case 's', 0:
		s := vm.str(val)
		if precision >= 0 && len(s) > precision {
			s = s[:precision]
		}
		return s
	default:
		return vm.str(val)
	}
}

// applyFormatSpec is the str.format()/format() mini-language interpreter:
// parse the spec, render val to text, then apply sign, zero-fill, and
// alignment in that order.
func (vm *VM) applyFormatSpec(val Value, spec string) string {
	if spec == "" {
		return vm.str(val)
	}

	fs := parseFieldSpec(spec)
	s := vm.renderKind(val, fs)

	if fs.sign == '+' && len(s) > 0 && s[0] != '-' {
		s = "+" + s
	} else if fs.sign == ' ' && len(s) > 0 && s[0] != '-' {
		s = " " + s
	}

	if fs.zeroFill && fs.width > 0 {
		prefix := ""
		if len(s) > 0 && (s[0] == '-' || s[0] == '+' || s[0] == ' ') {
			prefix, s = string(s[0]), s[1:]
		}
		for len(s) < fs.width-len(prefix) {
			s = "0" + s
		}
		return prefix + s
	}

	return padToWidth(s, fs, val)
}

// padToWidth applies the alignment/fill rules once sign and zero-fill (if
// any) have already been resolved. With no explicit alignment, numbers
// right-align and everything else left-aligns, matching CPython.
func padToWidth(s string, fs fieldSpec, val Value) string {
	padding := fs.width - utf8.RuneCountInString(s)
	if padding <= 0 {
		return s
	}
	switch fs.align {
	case '<':
		return s + strings.Repeat(fs.fill, padding)
	case '>':
		return strings.Repeat(fs.fill, padding) + s
	case '^':
		left := padding / 2
		return strings.Repeat(fs.fill, left) + s + strings.Repeat(fs.fill, padding-left)
	default:
		switch val.(type) {
		case *PyInt, *PyFloat:
			return strings.Repeat(fs.fill, padding) + s
		default:
			return s + strings.Repeat(fs.fill, padding)
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
