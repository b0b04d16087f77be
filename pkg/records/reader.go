// Package records reads header-keyed rows from delimited text.
package records

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// ErrNoHeader is returned by NewReader when the input holds no header row.
var ErrNoHeader = errors.New("no header row")

// maxLineSize bounds a single physical line.
const maxLineSize = 1 << 20

// Record is one data row keyed by header field name.
type Record map[string]string

// Reader yields records from comma-delimited text with a header row. Each
// physical line is one row.
//
// Fields may be double-quoted; a doubled quote inside a quoted field is a
// literal quote and commas inside quotes do not split fields. Rows whose
// field count differs from the header are dropped, as are rows with broken
// quoting, and a dropped row never affects the lines around it. Blank lines
// are skipped and every field is trimmed after unquoting.
type Reader struct {
	scanner *bufio.Scanner
	header  []string
	dropped int
	err     error
}

// NewReader reads the header row from r. It fails only when no header can
// be read.
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	reader := &Reader{scanner: scanner}
	first := true
	for {
		line, ok := reader.nextLine()
		if !ok {
			if reader.err != nil {
				return nil, fmt.Errorf("failed to read header: %w", reader.err)
			}
			return nil, ErrNoHeader
		}
		if first {
			// Strip a UTF-8 byte order mark at the start of the input.
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		header, ok := splitLine(line)
		if !ok {
			return nil, fmt.Errorf("failed to read header: malformed quoting in %q", line)
		}
		reader.header = header
		return reader, nil
	}
}

// Header returns the header field names.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Dropped returns the number of malformed rows skipped so far.
func (r *Reader) Dropped() int {
	return r.dropped
}

// Err returns the first I/O error that stopped iteration, if any. Malformed
// rows are never reported here.
func (r *Reader) Err() error {
	return r.err
}

// Next returns the next well-formed record, or io.EOF when the input is
// exhausted.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return nil, r.err
	}

	for {
		line, ok := r.nextLine()
		if !ok {
			if r.err != nil {
				return nil, r.err
			}
			return nil, io.EOF
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, ok := splitLine(line)
		if !ok || len(fields) != len(r.header) {
			r.dropped++
			continue
		}

		record := make(Record, len(r.header))
		for i, name := range r.header {
			record[name] = fields[i]
		}
		return record, nil
	}
}

// All returns a lazy sequence over the remaining records. Iteration stops at
// end of input or on an I/O error, which is then available from Err.
func (r *Reader) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			record, err := r.Next()
			if err != nil {
				return
			}
			if !yield(record) {
				return
			}
		}
	}
}

// ReadAll collects every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for record := range r.All() {
		out = append(out, record)
	}
	return out, r.Err()
}

// nextLine returns the next physical line without its line terminator.
func (r *Reader) nextLine() (string, bool) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			r.err = fmt.Errorf("failed to read row: %w", err)
		}
		return "", false
	}
	return strings.TrimSuffix(r.scanner.Text(), "\r"), true
}

// splitLine splits one line into trimmed fields. It reports false for an
// unterminated quoted field, text after a closing quote, or a quote inside
// an unquoted field.
func splitLine(line string) ([]string, bool) {
	var fields []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}

		if i < len(line) && line[i] == '"' {
			var sb strings.Builder
			i++
			closed := false
			for i < len(line) {
				if line[i] == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						sb.WriteByte('"')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				sb.WriteByte(line[i])
				i++
			}
			if !closed {
				return nil, false
			}
			for i < len(line) && isSpace(line[i]) {
				i++
			}
			if i < len(line) && line[i] != ',' {
				return nil, false
			}
			fields = append(fields, strings.TrimSpace(sb.String()))
		} else {
			end := strings.IndexByte(line[i:], ',')
			if end < 0 {
				end = len(line) - i
			}
			raw := line[i : i+end]
			if strings.ContainsRune(raw, '"') {
				return nil, false
			}
			fields = append(fields, strings.TrimSpace(raw))
			i += end
		}

		if i >= len(line) {
			return fields, true
		}
		// line[i] is the separating comma.
		i++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
