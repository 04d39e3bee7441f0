package weaviate

import "fmt"

// Kind names a search flavour as used in fixture files and on the command line.
type Kind string

const (
	KindBM25     Kind = "bm25"
	KindHybrid01 Kind = "hybrid_01"
	KindHybrid09 Kind = "hybrid_09"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindBM25, KindHybrid01, KindHybrid09}

// ParseKind accepts the fixture spellings, including "hybrid_0.1" and "hybrid_0.9".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bm25":
		return KindBM25, nil
	case "hybrid_01", "hybrid_0.1":
		return KindHybrid01, nil
	case "hybrid_09", "hybrid_0.9":
		return KindHybrid09, nil
	}
	return "", fmt.Errorf("weaviate: unknown search kind %q", s)
}

// Alpha is the hybrid weighting for the kind; zero for BM25.
func (k Kind) Alpha() float64 {
	switch k {
	case KindHybrid01:
		return 0.1
	case KindHybrid09:
		return 0.9
	}
	return 0
}

// Hybrid reports whether the kind needs a query vector.
func (k Kind) Hybrid() bool {
	return k == KindHybrid01 || k == KindHybrid09
}
