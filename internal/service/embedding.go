package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	pgvector "github.com/pgvector/pgvector-go"
)

// GenerateEmbedding maps recipe text onto a small deterministic vector used
// to order free-text search on postgres: rune count, word count and vowel
// ratio. Texts with similar length, wordiness and letter mix land close
// together, which is enough for ranking a single-tenant recipe catalog.
func GenerateEmbedding(text string) pgvector.Vector {
	text = strings.ToLower(strings.TrimSpace(text))

	var vowels, letters float32
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}

	var ratio float32
	if letters > 0 {
		ratio = vowels / letters
	}

	runes := float32(utf8.RuneCountInString(text))
	words := float32(len(strings.Fields(text)))
	return pgvector.NewVector([]float32{runes, words, ratio})
}
