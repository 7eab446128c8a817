// Package pipeline reads statistics periods back from JSONL, the format
// `bodacc stats --format jsonl` writes, so they can be piped into other
// commands.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/derickschaefer/bodacc/internal/model"
	"github.com/derickschaefer/bodacc/internal/util"
)

// ReadPeriods reads one StatisticsPeriod per line from r and returns them
// ordered by start date. Blank lines and lines starting with // are skipped.
func ReadPeriods(r io.Reader) ([]model.StatisticsPeriod, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var periods []model.StatisticsPeriod
	seen := make(map[string]int)
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		var p model.StatisticsPeriod
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if p.Key == "" {
			return nil, fmt.Errorf("line %d: missing period key (is this stats output?)", lineNum)
		}
		if _, err := util.ParseDate(p.Start); err != nil {
			return nil, fmt.Errorf("line %d: invalid start date %q", lineNum, p.Start)
		}
		if p.Count < 0 {
			return nil, fmt.Errorf("line %d: negative count %d", lineNum, p.Count)
		}
		if prev, dup := seen[p.Key]; dup {
			return nil, fmt.Errorf("line %d: period %s already read on line %d", lineNum, p.Key, prev)
		}
		seen[p.Key] = lineNum
		periods = append(periods, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("no periods read from input (is stdin empty?)")
	}

	// ISO dates sort lexically.
	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Start < periods[j].Start })
	return periods, nil
}

// IsTerminal reports whether f is a character device rather than a pipe
// or regular file.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
