// Package vector serializes embedding vectors to and from the pgvector
// text format "[f1,f2,...,fn]".
package vector

import (
	"strconv"
	"strings"

	"github.com/pokvault/pokvault/internal/domain"
)

// Encode converts a float vector to the pgvector text form "[f1,f2,...,fn]".
// A nil vector encodes to nil, which maps to SQL NULL.
//
// Values are formatted with the shortest decimal representation that
// round-trips a float32 exactly, so Decode(Encode(v)) reproduces v.
func Encode(v []float32) *string {
	if v == nil {
		return nil
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')

	out := sb.String()
	return &out
}

// Decode parses the pgvector text form back into a float vector.
// A nil input decodes to nil. Malformed input (missing brackets, empty or
// non-numeric tokens) returns domain.ErrMalformedStoredVector; it never
// silently produces a zero or truncated vector.
func Decode(s *string) ([]float32, error) {
	if s == nil {
		return nil, nil
	}

	text := *s
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeDataIntegrity,
			"malformed stored vector",
			errMissingBrackets(text),
		)
	}

	body := text[1 : len(text)-1]
	if strings.TrimSpace(body) == "" {
		return []float32{}, nil
	}

	parts := strings.Split(body, ",")
	result := make([]float32, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(
				domain.ErrCodeDataIntegrity,
				"malformed stored vector",
				err,
			)
		}
		result[i] = float32(f)
	}

	return result, nil
}

type bracketError string

func errMissingBrackets(text string) error {
	return bracketError(text)
}

func (e bracketError) Error() string {
	return "expected bracket-delimited vector, got " + strconv.Quote(string(e))
}
