package helpers

import (
	"math/rand"
	"strings"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// injections are fragments no Reddit identifier may contain.
var injections = []string{
	"../../etc/passwd",
	"..\\..\\windows",
	"'; DROP TABLE posts--",
	"<script>alert(1)</script>",
	"abc\x00def",
	"abc\r\nX-Injected: 1",
	"abc def",
	"abc?x=1",
	"abc#frag",
	"abc/def",
	"%2e%2e%2f",
	"тест",
	"abc‮def",
}

// FuzzPostID generates malicious post ID test cases
func (f *Fuzzer) FuzzPostID() []string {
	ids := []string{
		"",
		"   ",
		"t3_",
		"t1_abc",
		"T3_abc",
		"t3_t3_abc",
		"abc-def",
		"abc_def",
		"ABC.def",
	}
	ids = append(ids, injections...)
	for range 20 {
		ids = append(ids, f.randomPrintable(1+f.rnd.Intn(24)))
	}
	return ids
}

// FuzzCommentID generates malicious comment ID test cases
func (f *Fuzzer) FuzzCommentID() []string {
	ids := []string{"", "t1_abc", "abc,def", "abc def", "-1", strings.Repeat("z", 101)}
	return append(ids, injections...)
}

// FuzzPostURL generates URLs that must not be accepted as Reddit post URLs
func (f *Fuzzer) FuzzPostURL() []string {
	return []string{
		"",
		"reddit.com",
		"https://reddit.com.evil.example/r/golang/comments/abc123/",
		"https://evil.example/www.reddit.com/r/golang/comments/abc123/",
		"https://www.reddit.com@evil.example/r/golang/comments/abc123/",
		"https://www.reddit.com/r/golang/",
		"https://www.reddit.com/r/golang/comments/",
		"https://www.reddit.com/r/golang/comments/abc-123/",
		"https://www.reddit.com/r/golang/comments/abc_123/",
		"https://www.reddit.com/user/someone/",
		"javascript:alert(1)//www.reddit.com/r/a/comments/abc123/",
		"ftp://www.reddit.com/r/golang/comments/abc123/",
	}
}

// randomPrintable returns a string mixing base36 with characters that are
// never valid in an ID. It always contains at least one invalid character.
func (f *Fuzzer) randomPrintable(n int) string {
	const valid = "abcdefghijklmnopqrstuvwxyz0123456789"
	const invalid = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|"
	b := make([]byte, n)
	for i := range b {
		if f.rnd.Intn(3) == 0 {
			b[i] = invalid[f.rnd.Intn(len(invalid))]
		} else {
			b[i] = valid[f.rnd.Intn(len(valid))]
		}
	}
	b[f.rnd.Intn(n)] = invalid[f.rnd.Intn(len(invalid))]
	return string(b)
}
