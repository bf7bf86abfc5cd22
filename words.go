package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// WordRow is one category entry: a title plus the majority word and the
// liar's word.
type WordRow struct {
	Title string
	WordA string
	WordB string
}

// WordSource supplies the rows a round draws from. Sources are read-only
// and safe to share across rooms.
type WordSource func() ([]WordRow, error)

// staticWordSource returns the given rows on every call.
func staticWordSource(rows []WordRow) WordSource {
	return func() ([]WordRow, error) {
		return rows, nil
	}
}

// fileWordSource reads and parses path on first use, caching the result
// for the lifetime of the process.
func fileWordSource(path string) WordSource {
	var (
		once sync.Once
		rows []WordRow
		err  error
	)

	return func() ([]WordRow, error) {
		once.Do(func() {
			rows, err = readWordFile(path)
		})
		return rows, err
	}
}

func readWordFile(path string) ([]WordRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWordsUnavailable, err)
	}

	return parseWordRows(string(data)), nil
}

// parseWordRows parses comma-separated lines into rows. Lines with fewer
// than three fields are discarded; extra fields are ignored.
func parseWordRows(text string) []WordRow {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	rows := make([]WordRow, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}

		rows = append(rows, WordRow{
			Title: fields[0],
			WordA: fields[1],
			WordB: fields[2],
		})
	}

	return rows
}
