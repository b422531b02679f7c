package log

import (
	"bytes"
	"math"
	"strconv"
	"unicode/utf8"
)

// Low-level append helpers shared by the LogEvent field methods. Everything
// writes JSON fragments directly into the builder buffer; none of these
// allocate on the common path.

// AppendBeginMarker writes the object start character '{'.
func AppendBeginMarker(buf *bytes.Buffer) {
	buf.WriteByte('{')
}

// AppendEndMarker writes the object end character '}'.
func AppendEndMarker(buf *bytes.Buffer) {
	buf.WriteByte('}')
}

// AppendKey writes a field key with the comma separator when the buffer
// already holds fields, then the colon.
func AppendKey(buf *bytes.Buffer, key string) {
	if buf.Len() >= 1 && buf.Bytes()[buf.Len()-1] != '{' {
		buf.WriteByte(',')
	}
	AppendString(buf, key)
	buf.WriteByte(':')
}

// AppendNil writes a JSON null.
func AppendNil(buf *bytes.Buffer) {
	buf.WriteString("null")
}

// AppendLineBreak terminates an entry.
func AppendLineBreak(buf *bytes.Buffer) {
	buf.WriteByte('\n')
}

// AppendBool writes a JSON boolean.
func AppendBool(buf *bytes.Buffer, val bool) {
	buf.WriteString(strconv.FormatBool(val))
}

// AppendInt writes a decimal integer.
func AppendInt(buf *bytes.Buffer, val int) {
	appendDecimal(buf, int64(val))
}

// AppendInts writes a JSON array of integers.
func AppendInts(buf *bytes.Buffer, vals []int) {
	if len(vals) == 0 {
		buf.WriteString("[]")
		return
	}

	buf.WriteByte('[')
	appendDecimal(buf, int64(vals[0]))
	for i := 1; i < len(vals); i++ {
		buf.WriteByte(',')
		appendDecimal(buf, int64(vals[i]))
	}
	buf.WriteByte(']')
}

// AppendInt64 writes a decimal int64.
func AppendInt64(buf *bytes.Buffer, val int64) {
	appendDecimal(buf, val)
}

// AppendUint64 writes a decimal uint64.
func AppendUint64(buf *bytes.Buffer, val uint64) {
	var tmp [20]byte
	buf.Write(strconv.AppendUint(tmp[:0], val, 10))
}

// AppendFloat64 writes a float64, with NaN and infinities rendered as quoted
// strings since JSON has no literal for them.
func AppendFloat64(buf *bytes.Buffer, val float64) {
	appendFloat(buf, val, 64)
}

func appendDecimal(buf *bytes.Buffer, val int64) {
	var tmp [20]byte
	buf.Write(strconv.AppendInt(tmp[:0], val, 10))
}

func appendFloat(buf *bytes.Buffer, val float64, bitSize int) {
	switch {
	case math.IsNaN(val):
		buf.WriteString(`"NaN"`)
	case math.IsInf(val, 1):
		buf.WriteString(`"Inf"`)
	case math.IsInf(val, -1):
		buf.WriteString(`"-Inf"`)
	default:
		var tmp [32]byte
		buf.Write(strconv.AppendFloat(tmp[:0], val, 'f', -1, bitSize))
	}
}

const _hex = "0123456789abcdef"

var _noEscapeTable = [256]bool{}

func init() {
	for i := 0; i <= 0x7e; i++ {
		_noEscapeTable[i] = i >= 0x20 && i != '\\' && i != '"'
	}
}

// AppendStrings writes a JSON array of strings.
func AppendStrings(buf *bytes.Buffer, vals []string) {
	if len(vals) == 0 {
		buf.WriteString("[]")
		return
	}

	buf.WriteByte('[')
	AppendString(buf, vals[0])
	for i := 1; i < len(vals); i++ {
		buf.WriteByte(',')
		AppendString(buf, vals[i])
	}
	buf.WriteByte(']')
}

// AppendString writes a JSON string. The fast path scans for bytes needing
// escapes and, finding none, writes the input in one call; otherwise the slow
// path re-encodes from the start of the string.
func AppendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')

	for i := 0; i < len(s); i++ {
		if !_noEscapeTable[s[i]] {
			appendStringComplex(buf, s)
			return
		}
	}

	buf.WriteString(s)
	buf.WriteByte('"')
}

// appendStringComplex escapes control characters, quotes, backslashes and
// invalid UTF-8 sequences. The closing quote is written here.
func appendStringComplex(buf *bytes.Buffer, s string) {
	start := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				if start < i {
					buf.WriteString(s[start:i])
				}
				buf.WriteString(`�`)
				i += size - 1
				start = i + 1
				continue
			}
			i += size - 1
			continue
		}

		if _noEscapeTable[b] {
			continue
		}

		if start < i {
			buf.WriteString(s[start:i])
		}

		switch b {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(_hex[b>>4])
			buf.WriteByte(_hex[b&0xF])
		}
		start = i + 1
	}

	if start < len(s) {
		buf.WriteString(s[start:])
	}
	buf.WriteByte('"')
}
