package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ffnexus/internal/core"
)

// ReadJSONL decodes newline-delimited message records from r and calls fn
// for each one in file order. Blank and undecodable lines are skipped and
// counted. Reading stops at the first error returned by fn.
func ReadJSONL(r io.Reader, fn func(core.Message) error) (skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg core.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			skipped++
			continue
		}
		if err := fn(msg); err != nil {
			return skipped, err
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("failed to read records: %w", err)
	}
	return skipped, nil
}

// WriteJSONL appends msg to w as a single JSON line.
func WriteJSONL(w io.Writer, msg core.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
