package chatbot

import (
	"math"
	"strings"
	"unicode"
)

// tokenize lowercases s and keeps runs of two or more word characters.
func tokenize(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) >= 2 {
			out = append(out, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

type vector map[string]float64

// vectorize fits idf over all docs (smoothed: ln((1+n)/(1+df)) + 1) and
// returns one L2-normalized tf-idf vector per doc.
func vectorize(docs [][]string) []vector {
	n := float64(len(docs))
	df := map[string]int{}
	for _, d := range docs {
		seen := map[string]bool{}
		for _, tok := range d {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	out := make([]vector, len(docs))
	for i, d := range docs {
		v := vector{}
		for _, tok := range d {
			v[tok]++
		}
		var norm float64
		for tok, tf := range v {
			w := tf * (math.Log((1+n)/(1+float64(df[tok]))) + 1)
			v[tok] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for tok := range v {
				v[tok] /= norm
			}
		}
		out[i] = v
	}
	return out
}

// dot of two normalized vectors is their cosine similarity
func dot(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var s float64
	for tok, w := range a {
		s += w * b[tok]
	}
	return s
}
