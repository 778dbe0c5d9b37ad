package extractor

import (
	"fmt"
	"strings"
)

const (
	chunkLines   = 50
	chunkOverlap = 10
)

// ChunkByLines splits source into windows of 50 lines, each starting 10
// lines before the previous one ended, until the last line is covered.
// Every window becomes a KindChunk symbol named after its line range.
func ChunkByLines(filePath string, source []byte, langName string) []Symbol {
	lines := splitLines(string(sanitize(source)))
	total := len(lines)
	if total == 0 {
		return nil
	}

	var symbols []Symbol
	start := 0
	for {
		end := min(start+chunkLines, total)
		symbols = append(symbols, Symbol{
			FilePath:  filePath,
			StartLine: start + 1,
			EndLine:   end,
			Name:      fmt.Sprintf("lines %d-%d", start+1, end),
			Kind:      KindChunk,
			Content:   truncate(strings.Join(lines[start:end], "\n"), MaxContentBytes),
			Language:  langName,
		})
		if end >= total {
			break
		}
		start = end - chunkOverlap
	}
	return symbols
}

// splitLines splits on "\n", strips a trailing "\r" from each line, and
// does not count the empty string after a final newline as a line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
