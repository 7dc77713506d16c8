package uri

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DataURI is a parsed RFC 2397 data URI
type DataURI struct {
	MimeType    string
	Base64      bool
	DecodedData []byte
}

// ParseDataURI parses data:[<mediatype>][;base64],<data>. Non-base64 payloads are
// percent-decoded.
func ParseDataURI(dataURI string) (*DataURI, error) {
	rest, ok := strings.CutPrefix(dataURI, SchemeData)
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing data: prefix")
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma")
	}

	parsed := &DataURI{MimeType: "text/plain"}
	params := strings.Split(header, ";")
	if params[0] != "" {
		parsed.MimeType = strings.ToLower(strings.TrimSpace(params[0]))
	}
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			parsed.Base64 = true
		}
	}

	if parsed.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some minters drop the padding
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("invalid data URI: failed to decode base64: %w", err)
			}
		}
		parsed.DecodedData = decoded
		return parsed, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		// JSON payloads are often embedded raw, with stray % characters
		decoded = payload
	}
	parsed.DecodedData = []byte(decoded)
	return parsed, nil
}

// DataURICheckResult is the result of validating a media data URI
type DataURICheckResult struct {
	Valid            bool
	Error            *string
	MimeType         string // detected from content
	DeclaredMimeType string
}

// DataURIChecker validates media data URIs and sniffs their content type
//
//go:generate mockgen -source=data_uri.go -destination=../mocks/data_uri_checker.go -package=mocks -mock_names=DataURIChecker=MockDataURIChecker
type DataURIChecker interface {
	// Check parses the URI, requires an image/* or video/* declared type and non-empty
	// content, and compares the declared type with the type detected from magic numbers
	Check(dataURI string) DataURICheckResult
}

type dataURIChecker struct{}

// NewDataURIChecker creates a new data URI checker
func NewDataURIChecker() DataURIChecker {
	return &dataURIChecker{}
}

func (c *dataURIChecker) Check(dataURI string) DataURICheckResult {
	parsed, err := ParseDataURI(dataURI)
	if err != nil {
		errMsg := err.Error()
		return DataURICheckResult{Error: &errMsg}
	}

	if !isImageOrVideoMimeType(parsed.MimeType) {
		errMsg := fmt.Sprintf("unsupported mime type: %s (only image/* and video/* are supported)", parsed.MimeType)
		return DataURICheckResult{Error: &errMsg, DeclaredMimeType: parsed.MimeType}
	}

	if len(parsed.DecodedData) == 0 {
		errMsg := "invalid data URI: empty data"
		return DataURICheckResult{Error: &errMsg, DeclaredMimeType: parsed.MimeType}
	}

	detected := mimetype.Detect(parsed.DecodedData).String()
	if !mimeTypesMatch(parsed.MimeType, detected) {
		errMsg := fmt.Sprintf("mime type mismatch: declared %s but detected %s", parsed.MimeType, detected)
		return DataURICheckResult{
			Error:            &errMsg,
			DeclaredMimeType: parsed.MimeType,
			MimeType:         detected,
		}
	}

	return DataURICheckResult{
		Valid:            true,
		MimeType:         detected,
		DeclaredMimeType: parsed.MimeType,
	}
}

func isImageOrVideoMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}

// mimeTypesMatch compares base types, treating image/svg and image/svg+xml as equal
func mimeTypesMatch(declared, detected string) bool {
	declared = strings.TrimSpace(strings.Split(strings.ToLower(declared), ";")[0])
	detected = strings.TrimSpace(strings.Split(strings.ToLower(detected), ";")[0])

	if declared == detected {
		return true
	}
	return (declared == "image/svg" && detected == "image/svg+xml") ||
		(declared == "image/svg+xml" && detected == "image/svg")
}
