// Package parser reads card files. The format is line-oriented:
//
//	Q: question text, possibly
//	continuing on following lines
//	A: answer text
//	D: deck one, deck two
//	---
//
// A new "Q:" or a "---" separator ends the current card. "D:" lists
// the decks the card should be filed into, comma separated. The parser
// is a pure transform; it knows nothing about scheduling.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Entry is one parsed card plus the decks it was tagged with.
type Entry struct {
	Front string
	Back  string
	Decks []string
}

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
	deckPrefix  = "D:"
	separator   = "---"
)

type section int

const (
	none section = iota
	front
	back
)

// ParseFile reads the file at path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse extracts all entries from r.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		cur     Entry
		block   []string
		sec     = none
	)

	closeBlock := func() {
		// Blank lines between cards are not part of the content.
		for len(block) > 0 && strings.TrimSpace(block[len(block)-1]) == "" {
			block = block[:len(block)-1]
		}
		if len(block) == 0 {
			return
		}
		text := strings.Join(block, "\n")
		switch sec {
		case front:
			cur.Front = text
		case back:
			cur.Back = text
		}
		block = nil
	}

	closeEntry := func() {
		closeBlock()
		if cur.Front != "" {
			entries = append(entries, cur)
		}
		cur = Entry{}
		sec = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == separator:
			closeEntry()

		case strings.HasPrefix(line, frontPrefix):
			// A question always opens a new card.
			if sec != none || cur.Front != "" || len(cur.Decks) > 0 {
				closeEntry()
			}
			sec = front
			block = append(block, trimPrefix(line, frontPrefix))

		case strings.HasPrefix(line, backPrefix):
			closeBlock()
			sec = back
			block = append(block, trimPrefix(line, backPrefix))

		case strings.HasPrefix(line, deckPrefix):
			closeBlock()
			sec = none
			for _, name := range strings.Split(trimPrefix(line, deckPrefix), ",") {
				if name = strings.TrimSpace(name); name != "" {
					cur.Decks = append(cur.Decks, name)
				}
			}

		case sec != none:
			block = append(block, line)
		}
	}
	closeEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, prefix), " ")
}
