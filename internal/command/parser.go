package command

import (
	"fmt"
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command, with quotes removed.
	Args []string
}

// Parse splits a text line into a command and arguments. Single or double
// quotes group words into one argument, so notes may contain spaces.
//
// Postcondition: Returns a ParseResult, or an error for an unterminated quote.
// If line is blank, Command is empty.
func Parse(line string) (ParseResult, error) {
	words, err := split(line)
	if err != nil {
		return ParseResult{}, err
	}
	if len(words) == 0 {
		return ParseResult{}, nil
	}
	result := ParseResult{Command: strings.ToLower(words[0])}
	if len(words) > 1 {
		result.Args = words[1:]
	}
	return result, nil
}

func split(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
	)
	for _, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			current.WriteRune(c)
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
