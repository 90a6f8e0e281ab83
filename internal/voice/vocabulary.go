package voice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/presence-station/internal/facematch"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Action is a device command.
type Action string

const (
	LightOn  Action = "light_on"
	LightOff Action = "light_off"
	FanOn    Action = "fan_on"
	FanOff   Action = "fan_off"
)

func (a Action) valid() bool {
	switch a {
	case LightOn, LightOff, FanOn, FanOff:
		return true
	}
	return false
}

// Command maps phrases to an action.
type Command struct {
	Action  Action   `yaml:"action"`
	Reply   string   `yaml:"reply"`
	Phrases []string `yaml:"phrases"`
}

// Vocabulary is the ordered list of commands.
type Vocabulary struct {
	Commands []Command `yaml:"commands"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() (Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

// LoadVocabulary reads a vocabulary file. An empty path selects the built-in one.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary parses and validates YAML. Phrases are normalised once here.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(v.Commands) == 0 {
		return Vocabulary{}, errors.New("vocabulary has no commands")
	}

	for i := range v.Commands {
		c := &v.Commands[i]
		if !c.Action.valid() {
			return Vocabulary{}, fmt.Errorf("vocabulary command %d: unknown action %q", i, c.Action)
		}
		phrases := c.Phrases[:0]
		for _, p := range c.Phrases {
			if n := facematch.NormalizeText(p); n != "" {
				phrases = append(phrases, n)
			}
		}
		if len(phrases) == 0 {
			return Vocabulary{}, fmt.Errorf("vocabulary command %s has no phrases", c.Action)
		}
		c.Phrases = phrases
	}
	return v, nil
}

// Classify returns the first command with a phrase contained in text.
func (v Vocabulary) Classify(text string) (Command, bool) {
	n := facematch.NormalizeText(text)
	if n == "" {
		return Command{}, false
	}
	for _, c := range v.Commands {
		for _, p := range c.Phrases {
			if strings.Contains(n, p) {
				return c, true
			}
		}
	}
	return Command{}, false
}
