package extraction

import (
	"errors"
	"fmt"
)

// CardDetails contains the contact fields extracted from a business card.
// Every field is always present; a field the model could not read is an
// empty string, never omitted.
type CardDetails struct {
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	PhoneNumber   string `json:"phoneNumber"`
	Email         string `json:"email"`
	Website       string `json:"website"`
	Address       string `json:"address"`
}

// Extractor defines the interface for card field extraction
type Extractor interface {
	// ExtractCard analyzes a business card image and extracts contact fields
	ExtractCard(imageData []byte, contentType string) (*CardDetails, error)
	// Close closes the extractor and releases resources
	Close() error
}

var (
	// ErrMissingAPIKey is returned when a provider is constructed without
	// an API key. No network call is ever attempted in that case.
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrMalformedResponse is returned when the model reply carries no
	// usable text content.
	ErrMalformedResponse = errors.New("no text content in model response")

	// ErrUnparsableJSON is returned when the model reply text is not valid
	// JSON for the card field shape.
	ErrUnparsableJSON = errors.New("model response is not valid JSON")
)

// HTTPError reports a non-2xx transport-level response from a provider.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("extraction request failed with status %d: %s", e.Status, e.Body)
}

// cardExtractPrompt is the shared prompt used by all providers for reading
// business cards
const cardExtractPrompt = `You are analyzing a photo or scan of a business card. Carefully read all text in the image and extract the following information:

1. **Company Name**: The name of the company or organization, often the largest text or next to a logo.

2. **Contact Person**: The full name of the person the card belongs to.

3. **Phone Number**: The primary phone number. Prefer a mobile or direct line over a fax number.

4. **Email**: The email address printed on the card.

5. **Website**: The company or personal website URL.

6. **Address**: The full postal address, on one line.

Return ONLY valid JSON in this exact format:
{
  "companyName": "",
  "contactPerson": "",
  "phoneNumber": "",
  "email": "",
  "website": "",
  "address": ""
}

Important:
- Every value must be a string
- If you cannot find a field, use an empty string for that field
- Do not invent information that is not on the card
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
