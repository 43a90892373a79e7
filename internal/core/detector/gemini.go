package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/phiscan/internal/core"
)

const geminiSystemPrompt = `You find personally identifiable and protected health information in text.
Answer with a JSON object of the form {"entities":[{"type":"<TYPE>","text":"<exact substring>","score":<0..1>}]}.
"text" must be copied verbatim from the input. Use only these types: %s.
Return {"entities":[]} when nothing is found.`

// Gemini detects entities with a generative model in JSON mode. The model
// returns matched substrings; offsets are recovered by locating each one
// in the submitted text.
type Gemini struct {
	llm core.LLMProvider
}

var _ core.Detector = (*Gemini)(nil)

func NewGemini(llm core.LLMProvider) *Gemini {
	return &Gemini{llm: llm}
}

type geminiResponse struct {
	Entities []struct {
		Type  string  `json:"type"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"entities"`
}

func (g *Gemini) Detect(ctx context.Context, text, language string) ([]core.DetectedEntity, error) {
	system := fmt.Sprintf(geminiSystemPrompt, strings.Join(entityTypeNames, ", "))
	prompt := fmt.Sprintf("Language: %s\n\n%s", language, text)

	raw, err := g.llm.Generate(ctx, system, prompt, true)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var resp geminiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode gemini entities: %w", err)
	}

	// next byte to search from, per matched text, so repeats map to
	// successive occurrences
	cursor := map[string]int{}
	var out []core.DetectedEntity
	for _, e := range resp.Entities {
		typ := strings.ToUpper(strings.TrimSpace(e.Type))
		if e.Text == "" || !IsEntityType(typ) {
			continue
		}
		from := cursor[e.Text]
		i := strings.Index(text[from:], e.Text)
		if i < 0 {
			continue
		}
		start := from + i
		cursor[e.Text] = start + len(e.Text)

		begin := utf8.RuneCountInString(text[:start])
		out = append(out, core.DetectedEntity{
			Type:        typ,
			Score:       e.Score,
			BeginOffset: begin,
			EndOffset:   begin + utf8.RuneCountInString(e.Text),
		})
	}
	return out, nil
}
