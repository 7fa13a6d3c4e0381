package generate

import (
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
)

// Section markers of the answer template
const (
	MarkerDefinitions = "Variable definitions:"
	MarkerProofTypes  = "Proof type(s):"
	MarkerProof       = "Proof:"
	MarkerEnd         = "QED"
)

// Parsed is the structured content of a model answer
type Parsed struct {
	Premise    string
	ProofTypes []string
	Steps      []string
}

// ParseResponse splits an answer into sentences and cuts it at the template
// markers. A missing marker is a *model.ResponseFormatError.
func ParseResponse(response string) (Parsed, error) {
	var sentences []string
	for _, line := range strings.Split(response, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if isMarker(line) {
			sentences = append(sentences, strings.TrimRight(line, "."))
			continue
		}
		sentences = append(sentences, splitSentences(line)...)
	}

	idx := make(map[string]int, 4)
	from := 0
	for _, marker := range []string{MarkerDefinitions, MarkerProofTypes, MarkerProof, MarkerEnd} {
		i := indexFrom(sentences, marker, from)
		if i < 0 {
			return Parsed{}, &model.ResponseFormatError{Marker: marker}
		}
		idx[marker] = i
		from = i + 1
	}

	return Parsed{
		Premise:    strings.Join(sentences[idx[MarkerDefinitions]+1:idx[MarkerProofTypes]], "\n"),
		ProofTypes: clone(sentences[idx[MarkerProofTypes]+1 : idx[MarkerProof]]),
		Steps:      clone(sentences[idx[MarkerProof]+1 : idx[MarkerEnd]]),
	}, nil
}

// cleanLine trims whitespace and markdown emphasis
func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*_")
	return strings.TrimSpace(line)
}

func isMarker(line string) bool {
	switch strings.TrimRight(line, ".") {
	case MarkerDefinitions, MarkerProofTypes, MarkerProof, MarkerEnd:
		return true
	}
	return false
}

// splitSentences cuts a line after every period followed by whitespace or the
// end of the line, so decimals such as 3.5 stay intact.
func splitSentences(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] != '.' {
			continue
		}
		if i+1 < len(line) && line[i+1] != ' ' && line[i+1] != '\t' {
			continue
		}
		if s := strings.TrimSpace(line[start : i+1]); s != "" && s != "." {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func indexFrom(items []string, target string, from int) int {
	for i := from; i < len(items); i++ {
		if items[i] == target {
			return i
		}
	}
	return -1
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
