package evals

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// tokenRe matches word tokens of two or more characters, the convention
// used by standard TF-IDF vectorizers. Single-character tokens carry almost
// no signal and are dropped.
var tokenRe = regexp.MustCompile(`\w\w+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// cosineSimilarity computes the TF-IDF cosine similarity of two texts over
// the vocabulary the pair spans. IDF is smoothed (document counts offset by
// one) and each vector is l2-normalized, so the result lands in [0, 1].
func cosineSimilarity(a, b string) (float64, error) {
	tokensA := tokenize(a)
	tokensB := tokenize(b)

	vocab := make(map[string]int)
	for _, tok := range tokensA {
		if _, ok := vocab[tok]; !ok {
			vocab[tok] = len(vocab)
		}
	}
	for _, tok := range tokensB {
		if _, ok := vocab[tok]; !ok {
			vocab[tok] = len(vocab)
		}
	}
	if len(vocab) == 0 {
		return 0, fmt.Errorf("empty vocabulary: neither text contains word tokens")
	}

	counts := func(tokens []string) []float64 {
		v := make([]float64, len(vocab))
		for _, tok := range tokens {
			v[vocab[tok]]++
		}
		return v
	}
	tfA := counts(tokensA)
	tfB := counts(tokensB)

	// Smoothed IDF over the two-document corpus: ln((1+n)/(1+df)) + 1.
	const n = 2
	idf := make([]float64, len(vocab))
	for i := range idf {
		df := 0
		if tfA[i] > 0 {
			df++
		}
		if tfB[i] > 0 {
			df++
		}
		idf[i] = math.Log(float64(1+n)/float64(1+df)) + 1
	}

	floats.Mul(tfA, idf)
	floats.Mul(tfB, idf)
	normalize(tfA)
	normalize(tfB)
	return floats.Dot(tfA, tfB), nil
}

func normalize(v []float64) {
	norm := floats.Norm(v, 2)
	if norm > 0 {
		floats.Scale(1/norm, v)
	}
}
