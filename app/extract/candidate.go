package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate is the validated structured payload returned by the extraction
// capability. Boolean-like fields carry Yes/No string tokens; the JSON keys
// are the fixed schema the capability is prompted to produce.
type Candidate struct {
	IsAnEvent   string `json:"IsAnEvent"`
	IsInPerson  string `json:"IsInPerson"`
	Location    string `json:"Location"`
	Link        string `json:"Link"`
	Host        string `json:"Host"`
	IsFullday   string `json:"IsFullday"`
	Day         string `json:"Day"`
	StartTime   string `json:"Start time"`
	EndTime     string `json:"End time"`
	EventName   string `json:"Event name"`
	Description string `json:"Event description"`
	Category    string `json:"Event Category"`
}

func (c *Candidate) IsEvent() bool {
	return strings.EqualFold(c.IsAnEvent, "Yes")
}

func (c *Candidate) InPerson() bool {
	return strings.EqualFold(c.IsInPerson, "Yes")
}

func (c *Candidate) FullDay() bool {
	return strings.EqualFold(c.IsFullday, "Yes")
}

// LocationOrLink returns whichever of the two the candidate declares based
// on its in-person flag.
func (c *Candidate) LocationOrLink() string {
	if c.InPerson() {
		return c.Location
	}
	return c.Link
}

// Validate rejects structurally invalid payloads before they reach
// normalization.
func (c *Candidate) Validate() error {
	isEvent := strings.ToLower(strings.TrimSpace(c.IsAnEvent))
	if isEvent != "yes" && isEvent != "no" {
		return fmt.Errorf("invalid IsAnEvent value: %q", c.IsAnEvent)
	}

	if !c.IsEvent() {
		return nil
	}

	if strings.TrimSpace(c.Day) == "" {
		return fmt.Errorf("missing Day field")
	}
	if strings.TrimSpace(c.EventName) == "" {
		return fmt.Errorf("missing Event name field")
	}

	return nil
}

// decodeCandidate strips any enclosing formatting noise from the raw
// response and decodes it against the fixed schema. A non-conforming
// response is a hard failure for that single item.
func decodeCandidate(raw string) (*Candidate, error) {
	cleaned := cleanResponse(raw)

	var candidate Candidate
	if err := json.Unmarshal([]byte(cleaned), &candidate); err != nil {
		return nil, fmt.Errorf("extraction response is not valid JSON: %w", err)
	}

	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("extraction response failed validation: %w", err)
	}

	return &candidate, nil
}

// cleanResponse removes markdown code fences and a stray leading "json"
// token that models wrap structured output in.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}
