// Package botdetect solves the BotDetect captcha case puzzle.
//
// The portal issues a seed (sp) and a SHA-1 target (hs) with each captcha.
// The first integer n >= sp whose SHA-1(str(n) + vcid) equals hs decides
// which letters of the OCR'd text the server expects in upper case.
package botdetect

import (
	"crypto/sha1" //nolint:gosec // the portal defines the puzzle in SHA-1
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
)

// DefaultMaxIterations bounds the hash search
const DefaultMaxIterations = 10_000_000

const caseModulus = 65533

// Solver searches the hash puzzle within a fixed iteration ceiling
type Solver struct {
	MaxIterations int
}

// NewSolver creates a solver. A non-positive ceiling falls back to DefaultMaxIterations.
func NewSolver(maxIterations int) *Solver {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Solver{MaxIterations: maxIterations}
}

// Solve returns the smallest n >= seed with SHA-1(str(n)+vcid) == targetHash
func (s *Solver) Solve(seed int64, vcid, targetHash string) (int64, error) {
	target, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(targetHash)))
	if err != nil || len(target) != sha1.Size {
		return 0, apperrors.New(apperrors.KindPuzzleUnsolvable, "target hash is not a hex SHA-1 digest")
	}

	var want [sha1.Size]byte
	copy(want[:], target)

	suffix := []byte(vcid)
	buf := make([]byte, 0, 20+len(suffix))

	for i := 0; i < s.MaxIterations; i++ {
		n := seed + int64(i)
		buf = strconv.AppendInt(buf[:0], n, 10)
		buf = append(buf, suffix...)
		if sha1.Sum(buf) == want { //nolint:gosec
			return n, nil
		}
	}

	return 0, apperrors.New(apperrors.KindPuzzleUnsolvable, "hash puzzle not solved within "+strconv.Itoa(s.MaxIterations)+" iterations")
}

// Transform solves the puzzle and applies the resulting case pattern to text
func (s *Solver) Transform(text string, seed int64, vcid, targetHash string) (string, error) {
	n, err := s.Solve(seed, vcid, targetHash)
	if err != nil {
		return "", err
	}
	return ApplyCase(text, n), nil
}

// ApplyCase upper-cases the characters of text selected by the binary form of
// (n mod 65533)+1. The last character pairs with the least significant bit;
// characters beyond the pattern's length are lower-cased.
func ApplyCase(text string, n int64) string {
	modifier := n%caseModulus + 1
	if modifier < 1 {
		// negative seeds still map into the pattern range
		modifier += caseModulus
	}
	pattern := strconv.FormatInt(modifier, 2)

	runes := []rune(text)
	out := make([]rune, len(runes))
	for i := len(runes) - 1; i >= 0; i-- {
		fromEnd := len(runes) - 1 - i
		bit := len(pattern) - 1 - fromEnd
		if bit >= 0 && pattern[bit] == '1' {
			out[i] = unicode.ToUpper(runes[i])
		} else {
			out[i] = unicode.ToLower(runes[i])
		}
	}
	return string(out)
}
