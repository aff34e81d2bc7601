// Package parser turns model output into JSON values. Language models wrap
// JSON in markdown fences, surround it with prose or emit it slightly broken;
// the repair parser tolerates all three.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/planact/core"
	"github.com/hupe1980/planact/logging"
)

// Parser converts text into a decoded JSON value. When text is empty the
// default is returned; an empty text without a default is an error.
type Parser interface {
	Parse(text string, def any) (any, error)
}

// Options configures a RepairParser.
type Options struct {
	Logger logging.Logger
}

// RepairParser parses JSON and repairs malformed input before giving up.
type RepairParser struct {
	logger logging.Logger
}

// New creates a RepairParser.
func New(optFns ...func(o *Options)) *RepairParser {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RepairParser{logger: logging.OrNoOp(opts.Logger)}
}

// Parse implements Parser.
func (p *RepairParser) Parse(text string, def any) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		if def != nil {
			return def, nil
		}

		return nil, fmt.Errorf("%w: empty text and no default", core.ErrParse)
	}

	text = stripFences(text)

	if !gjson.Valid(text) {
		if embedded, ok := extractObject(text); ok {
			text = embedded
		}
	}

	if !gjson.Valid(text) {
		repaired, err := jsonrepair.RepairJSON(text)
		if err != nil {
			p.logger.Warn("parser.repair.failed", "error", err.Error())
			return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
		}

		p.logger.Debug("parser.repair.applied", "input_len", len(text), "output_len", len(repaired))
		text = repaired
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
	}

	if v == nil {
		if def != nil {
			return def, nil
		}

		return nil, fmt.Errorf("%w: no JSON value in text", core.ErrParse)
	}

	return v, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}

	s = strings.TrimSpace(s)

	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// extractObject returns the outermost {...} span of s when it parses as JSON.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')

	if start < 0 || end <= start {
		return "", false
	}

	candidate := s[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}

	return candidate, true
}
