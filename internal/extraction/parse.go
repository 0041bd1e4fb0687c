package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseCardJSON parses the JSON reply from a vision model into CardDetails
func parseCardJSON(text string) (*CardDetails, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrUnparsableJSON)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: unterminated JSON object in response", ErrUnparsableJSON)
	}

	text = text[startIdx : endIdx+1]

	var details CardDetails
	if err := json.Unmarshal([]byte(text), &details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableJSON, err)
	}

	// Fields the model answered with null or omitted come back as empty
	// strings already; trim whatever it did return.
	details.CompanyName = strings.TrimSpace(details.CompanyName)
	details.ContactPerson = strings.TrimSpace(details.ContactPerson)
	details.PhoneNumber = strings.TrimSpace(details.PhoneNumber)
	details.Email = strings.TrimSpace(details.Email)
	details.Website = strings.TrimSpace(details.Website)
	details.Address = strings.TrimSpace(details.Address)

	return &details, nil
}
