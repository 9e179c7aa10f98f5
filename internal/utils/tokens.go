// Package utils provides tiktoken-based token estimates for log output.
package utils

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// CountTokens estimates the number of tokens in text with the GPT-4 encoding.
// It falls back to a 4-characters-per-token estimate when the codec is unavailable.
func CountTokens(text string) int {
	codecOnce.Do(func() {
		c, err := tokenizer.ForModel(tokenizer.GPT4)
		if err == nil {
			codec = c
		}
	})

	if codec == nil {
		return len(text) / 4
	}

	count, err := codec.Count(text)
	if err != nil {
		return len(text) / 4
	}

	return count
}

// CountMessageTokens sums the estimates of several texts.
func CountMessageTokens(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += CountTokens(t)
	}
	return total
}
