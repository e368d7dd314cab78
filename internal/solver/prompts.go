package solver

import (
	"fmt"
	"strings"
)

// Prompt is a named prompting strategy for the vision model. Different
// strategies coax different transcription behavior out of the same model,
// so consecutive attempts rotate through the catalog.
type Prompt struct {
	Name string
	Text string
}

const (
	// StrategyAncientScribe frames the task as transcription of a
	// weathered inscription.
	StrategyAncientScribe = "ancient_scribe"
	// StrategyCalligraphyMaster frames the task as handwriting analysis.
	StrategyCalligraphyMaster = "calligraphy_master"
	// StrategyOracleVision frames the task as seeing through distortion.
	StrategyOracleVision = "oracle_vision"
)

var promptCatalog = []Prompt{
	{
		Name: StrategyAncientScribe,
		Text: "You are an ancient scribe with perfect eyesight who deciphers weathered inscriptions. " +
			"Transcribe the characters in this image exactly as they appear. " +
			"Preserve the case of every letter: uppercase stays uppercase, lowercase stays lowercase. " +
			"Respond with the characters only, no explanation and no punctuation.",
	},
	{
		Name: StrategyCalligraphyMaster,
		Text: "You are a master of calligraphy examining a distorted handwriting sample. " +
			"Identify each character in the image, keeping the exact case of every letter. " +
			"Reply with only the characters you see, nothing else.",
	},
	{
		Name: StrategyOracleVision,
		Text: "You are an oracle whose sight pierces any visual distortion. " +
			"Read the text hidden in this image and answer with exactly those characters, " +
			"respecting capitalization. Output the characters alone, with no commentary.",
	},
}

// Strategies returns the prompt catalog in rotation order.
func Strategies() []Prompt {
	out := make([]Prompt, len(promptCatalog))
	copy(out, promptCatalog)
	return out
}

// StrategyByName resolves a single named strategy.
func StrategyByName(name string) (Prompt, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, prompt := range promptCatalog {
		if prompt.Name == name {
			return prompt, true
		}
	}
	return Prompt{}, false
}

// Rotation returns the prompt sequence attempts cycle through. An empty
// pinned name yields the full catalog; a known name pins every attempt to
// that one strategy.
func Rotation(pinned string) ([]Prompt, error) {
	pinned = strings.ToLower(strings.TrimSpace(pinned))
	if pinned == "" {
		return Strategies(), nil
	}
	prompt, ok := StrategyByName(pinned)
	if !ok {
		return nil, fmt.Errorf("unknown prompt strategy %q", pinned)
	}
	return []Prompt{prompt}, nil
}

// ForAttempt selects the prompt for a 1-based attempt number.
func ForAttempt(rotation []Prompt, attempt int) Prompt {
	if len(rotation) == 0 {
		rotation = promptCatalog
	}
	if attempt < 1 {
		attempt = 1
	}
	return rotation[(attempt-1)%len(rotation)]
}
