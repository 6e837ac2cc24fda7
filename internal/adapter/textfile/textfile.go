// Package textfile reads and writes the fixed-layout text files used to
// exchange soil profiles and layered observation series, and the CSV
// exports of simulation output and root-zone results.
//
// Every layered file opens with a five-line preamble:
//
//	************************************************************************
//	<product line>
//	<dataset line>
//	************************************************************************
//	Depth <column names...>
//
// followed by one whitespace-delimited row per layer. Profile files carry
// five decimals and a float meter depth label; content and deficit files
// carry three decimals and an integer centimeter depth label.
package textfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
)

const productLine = "soil-water-etl: Layered Soil Water Accounting"

var rule = strings.Repeat("*", 72)

// readFile returns the file's text, mapping a missing path to
// domain.ErrNotFound.
func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func writeFile(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil { //nolint:gosec // data files are meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// checkPreamble validates the two rule lines and returns the index of the
// header line. Legacy profile files put one subtitle line before the
// header; allowSubtitle accepts that layout.
func checkPreamble(path string, lines []string, allowSubtitle bool) (int, error) {
	if len(lines) < 5 {
		return 0, &domain.ParseError{Path: path, Line: len(lines), Msg: "truncated preamble: want rule, title, dataset, rule, header"}
	}
	for _, i := range []int{0, 3} {
		if strings.TrimSpace(lines[i]) != rule {
			return 0, &domain.ParseError{Path: path, Line: i + 1, Msg: "want a rule of 72 '*' characters"}
		}
	}
	if isHeader(lines[4]) {
		return 4, nil
	}
	if allowSubtitle && len(lines) > 5 && isHeader(lines[5]) {
		return 5, nil
	}
	return 0, &domain.ParseError{Path: path, Line: 5, Msg: "header must begin with \"Depth\""}
}

func isHeader(line string) bool {
	f := strings.Fields(line)
	return len(f) > 0 && f[0] == "Depth"
}
