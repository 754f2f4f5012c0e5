package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultHashingDim = 512

type hashingConfig struct {
	Dim int `json:"dim"`
}

// hashingProvider is an offline embedder: lower-cased word features hashed into
// a fixed number of signed buckets. Same text always yields the same vector.
type hashingProvider struct {
	dim int
}

var hashingStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "by": true,
	"did": true, "do": true, "does": true, "for": true, "from": true, "has": true, "have": true,
	"he": true, "her": true, "his": true, "how": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "she": true, "that": true, "the": true, "their": true,
	"this": true, "to": true, "was": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "with": true, "you": true, "your": true,
	"de": true, "del": true, "el": true, "en": true, "es": true, "la": true, "las": true, "los": true,
	"que": true, "su": true, "sus": true, "un": true, "una": true, "y": true, "cual": true, "cuales": true,
}

func (p *hashingProvider) Name() string {
	return "hashing"
}

func (p *hashingProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, p.dim)
	for _, token := range hashingTokens(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % uint64(p.dim))
		if sum>>63 == 1 {
			vec[idx]--
			continue
		}
		vec[idx]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func hashingTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if hashingStopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func createHashingEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &hashingConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dim <= 0 {
		cfg.Dim = defaultHashingDim
	}
	return &hashingProvider{dim: cfg.Dim}, nil
}

func init() {
	RegisterEmbed("hashing", createHashingEmbedFactory)
}
