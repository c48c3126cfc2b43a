// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"bufio"
	"io"
	"strings"
)

// medlineRecord holds one MEDLINE-format bibliographic record as a map of
// field tag to values in file order. Repeatable fields (AU, MH, AID, ...)
// accumulate one entry per line.
type medlineRecord map[string][]string

// first returns the first value for tag, or "".
func (r medlineRecord) first(tag string) string {
	if vs := r[tag]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseMedline reads MEDLINE text format: each line is "TAG - value" with
// the tag padded to four characters, continuation lines start with
// whitespace and extend the previous value, and a blank line separates
// records. Unrecognized lines are skipped rather than treated as errors,
// since efetch output can carry stray notices.
func parseMedline(r io.Reader) []medlineRecord {
	var (
		records []medlineRecord
		current medlineRecord
		lastTag string
	)

	flush := func() {
		if len(current) > 0 {
			records = append(records, current)
		}
		current = nil
		lastTag = ""
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		// Continuation of the previous field value.
		if strings.HasPrefix(line, " ") {
			if current != nil && lastTag != "" {
				vs := current[lastTag]
				vs[len(vs)-1] += " " + strings.TrimSpace(line)
			}
			continue
		}

		if len(line) < 6 || line[4:6] != "- " {
			continue
		}
		tag := strings.TrimSpace(line[:4])
		value := strings.TrimSpace(line[6:])
		if tag == "" {
			continue
		}

		if current == nil {
			current = medlineRecord{}
		}
		current[tag] = append(current[tag], value)
		lastTag = tag
	}
	flush()

	return records
}
