package recognition

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EngineFactory func(languages []string) (Engine, error)

type MathFactory func(args interface{}) (MathRecognizer, error)

var (
	engines = map[string]EngineFactory{}
	maths   = map[string]MathFactory{}
)

func RegisterEngine(name string, factory EngineFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	engines[key] = factory
}

func RegisterMath(name string, factory MathFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	maths[key] = factory
}

func NewEngine(name string, languages []string) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("recognition.engine is required")
	}
	factory := engines[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported recognition engine: %s", name)
	}
	return factory(languages)
}

// NewMathRecognizer builds the named recognizer. An empty name disables the
// math pass and returns nil.
func NewMathRecognizer(name string, args interface{}) (MathRecognizer, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, nil
	}
	factory := maths[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported math recognizer: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("math recognizer config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode math recognizer config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode math recognizer config: %w", err)
	}
	return nil
}
