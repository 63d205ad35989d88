package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	maxPatterns       = 3
	maxEmergencySteps = 4
)

// Parsed is the structured analysis returned by the model.
type Parsed struct {
	Summary          string   `json:"summary"`
	PositivePoint    string   `json:"positivePoint"`
	AttentionPoint   string   `json:"attentionPoint"`
	PatternsDetected []string `json:"patternsDetected"`
	Advice           []string `json:"advice"`
	EmergencyPlan    []string `json:"emergencyPlan"`
}

// rawParsed accepts either a string or a list for the list fields.
type rawParsed struct {
	Summary          string      `json:"summary"`
	PositivePoint    string      `json:"positivePoint"`
	AttentionPoint   string      `json:"attentionPoint"`
	PatternsDetected *stringList `json:"patternsDetected"`
	Advice           *stringList `json:"advice"`
	EmergencyPlan    *stringList `json:"emergencyPlan"`
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = stringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// ErrMalformedResponse wraps every reason a model response is rejected.
var ErrMalformedResponse = errors.New("analysis: malformed model response")

// ParseResponse strips code fences from raw, decodes it and validates the required fields.
// Over-long lists are truncated rather than rejected.
func ParseResponse(raw string) (Parsed, error) {
	body := stripCodeFences(raw)
	if body == "" {
		return Parsed{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var decoded rawParsed
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := Parsed{
		Summary:        strings.TrimSpace(decoded.Summary),
		PositivePoint:  strings.TrimSpace(decoded.PositivePoint),
		AttentionPoint: strings.TrimSpace(decoded.AttentionPoint),
	}
	switch {
	case out.Summary == "":
		return Parsed{}, fmt.Errorf("%w: missing summary", ErrMalformedResponse)
	case out.PositivePoint == "":
		return Parsed{}, fmt.Errorf("%w: missing positivePoint", ErrMalformedResponse)
	case out.AttentionPoint == "":
		return Parsed{}, fmt.Errorf("%w: missing attentionPoint", ErrMalformedResponse)
	case decoded.PatternsDetected == nil:
		return Parsed{}, fmt.Errorf("%w: missing patternsDetected", ErrMalformedResponse)
	case decoded.Advice == nil:
		return Parsed{}, fmt.Errorf("%w: missing advice", ErrMalformedResponse)
	case decoded.EmergencyPlan == nil:
		return Parsed{}, fmt.Errorf("%w: missing emergencyPlan", ErrMalformedResponse)
	}

	out.PatternsDetected = compact(*decoded.PatternsDetected, maxPatterns)
	out.Advice = compact(*decoded.Advice, 0)
	out.EmergencyPlan = compact(*decoded.EmergencyPlan, maxEmergencySteps)
	return out, nil
}

// stripCodeFences drops every ``` marker and keeps the span from the first
// '{' to the last '}', which also discards language tags and surrounding prose.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "```", ""))
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// compact trims entries, drops blanks and keeps at most limit items (0 means no limit).
func compact(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
