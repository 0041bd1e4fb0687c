package card

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoPayload is returned when a capture request carries no image at all
	ErrNoPayload = errors.New("no image was provided")

	// ErrEmptyPayload is returned when the data URL prefix is present but no
	// encoded data follows it
	ErrEmptyPayload = errors.New("image payload is empty")

	// ErrUnreadablePayload is returned when the payload is not a readable
	// base64 data URL
	ErrUnreadablePayload = errors.New("image payload could not be read")
)

// DecodeDataURL turns a captured frame, sent as a base64 data URL of the form
// data:<mime>;base64,<data>, into raw image bytes and a MIME type.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, "", ErrNoPayload
	}

	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data URL prefix", ErrUnreadablePayload)
	}

	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload separator", ErrUnreadablePayload)
	}

	mimeType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: payload is not base64 encoded", ErrUnreadablePayload)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	if encoded == "" {
		return nil, "", ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnreadablePayload, err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyPayload
	}

	return data, mimeType, nil
}

// captureFilename names an archived camera capture after its MIME type
func captureFilename(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "capture.png"
	case "image/jpeg":
		return "capture.jpg"
	case "image/webp":
		return "capture.webp"
	default:
		return "capture.img"
	}
}
