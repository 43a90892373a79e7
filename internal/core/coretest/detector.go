package coretest

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/markdave123-py/phiscan/internal/core"
)

// FakeDetector is a core.Detector driven by a function. It records the
// text of every call.
type FakeDetector struct {
	mu    sync.Mutex
	Fn    func(call int, text string) ([]core.DetectedEntity, error)
	Calls []string
}

var _ core.Detector = (*FakeDetector)(nil)

func (d *FakeDetector) Detect(_ context.Context, text, _ string) ([]core.DetectedEntity, error) {
	d.mu.Lock()
	call := len(d.Calls)
	d.Calls = append(d.Calls, text)
	d.mu.Unlock()

	if d.Fn == nil {
		return nil, nil
	}
	return d.Fn(call, text)
}

func (d *FakeDetector) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}

// MatchDetector reports every occurrence of each word as the given entity
// type, with character offsets.
func MatchDetector(words map[string]string) *FakeDetector {
	return &FakeDetector{Fn: func(_ int, text string) ([]core.DetectedEntity, error) {
		var out []core.DetectedEntity
		for word, typ := range words {
			from := 0
			for {
				i := strings.Index(text[from:], word)
				if i < 0 {
					break
				}
				byteStart := from + i
				begin := utf8.RuneCountInString(text[:byteStart])
				out = append(out, core.DetectedEntity{
					Type:        typ,
					Score:       0.99,
					BeginOffset: begin,
					EndOffset:   begin + utf8.RuneCountInString(word),
				})
				from = byteStart + len(word)
			}
		}
		sortEntities(out)
		return out, nil
	}}
}

func sortEntities(es []core.DetectedEntity) {
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && es[j].BeginOffset < es[j-1].BeginOffset; j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}
