package runner

import (
	"bufio"
	"bytes"
	"io"
)

// ScanSolverLines is a bufio.SplitFunc that accepts "\n", "\r\n" and
// bare "\r" as line delimiters and strips them from the token. Solver
// logs mix all three depending on platform and progress rewriting.
func ScanSolverLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// Bare "\r": wait for one more byte to tell it apart from "\r\n".
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// StreamLines reads r one line at a time, invoking fn for each complete
// line as it arrives. It returns when r is exhausted; it never buffers
// the whole stream. Closing r is the caller's responsibility.
func StreamLines(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(ScanSolverLines)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}
