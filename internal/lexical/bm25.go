package lexical

import "math"

// Okapi BM25 constants. Fixed so scores are reproducible across rebuilds.
const (
	// K1 controls term-frequency saturation.
	K1 = 1.5
	// B controls document-length normalization.
	B = 0.75
	// Epsilon floors negative IDF values as a fraction of the average IDF,
	// so very common terms still contribute a small positive weight.
	Epsilon = 0.25
)

// Model is a BM25 Okapi ranking model over a tokenized corpus.
// It is immutable after construction; rebuild it for any corpus change.
type Model struct {
	idf       map[string]float64
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	corpusLen int
}

// NewModel builds the model from a tokenized corpus. The slice index is the
// document position; Scores returns values in the same order.
func NewModel(tokenized [][]string) *Model {
	m := &Model{
		idf:       make(map[string]float64),
		termFreqs: make([]map[string]int, len(tokenized)),
		docLens:   make([]int, len(tokenized)),
		corpusLen: len(tokenized),
	}

	docFreq := make(map[string]int)
	total := 0
	for i, tokens := range tokenized {
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		m.termFreqs[i] = freqs
		m.docLens[i] = len(tokens)
		total += len(tokens)

		for term := range freqs {
			docFreq[term]++
		}
	}
	if m.corpusLen > 0 {
		m.avgDocLen = float64(total) / float64(m.corpusLen)
	}

	// Probabilistic IDF can go negative for terms in most documents.
	// Those are floored to Epsilon * average IDF afterwards.
	var idfSum float64
	var negative []string
	n := float64(m.corpusLen)
	for term, df := range docFreq {
		idf := math.Log(n - float64(df) + 0.5) - math.Log(float64(df)+0.5)
		m.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	if len(docFreq) > 0 {
		floor := Epsilon * (idfSum / float64(len(docFreq)))
		for _, term := range negative {
			m.idf[term] = floor
		}
	}

	return m
}

// Scores returns one BM25 score per corpus document for the query tokens,
// in corpus order. Unknown query terms contribute nothing.
func (m *Model) Scores(queryTokens []string) []float64 {
	scores := make([]float64, m.corpusLen)
	for _, term := range queryTokens {
		idf, ok := m.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range m.termFreqs {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := 1 - B + B*float64(m.docLens[i])/m.avgDocLen
			scores[i] += idf * tf * (K1 + 1) / (tf + K1*norm)
		}
	}
	return scores
}

// CorpusLen returns the number of indexed documents.
func (m *Model) CorpusLen() int {
	return m.corpusLen
}

// AvgDocLen returns the average document length in tokens.
func (m *Model) AvgDocLen() float64 {
	return m.avgDocLen
}

// TermCount returns the number of distinct terms in the corpus.
func (m *Model) TermCount() int {
	return len(m.idf)
}
