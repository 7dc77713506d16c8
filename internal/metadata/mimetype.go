package metadata

import (
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/uri"
)

// detectMimeType sniffs the MIME type of an inline image from its content. Remote
// images are left undetected and nil is returned.
func detectMimeType(checker uri.DataURIChecker, image *string) *string {
	if image == nil || !uri.IsDataURI(*image) {
		return nil
	}

	result := checker.Check(*image)
	if result.MimeType == "" {
		if result.Error != nil {
			logger.Debug("Failed to detect image mime type", zap.String("error", *result.Error))
		}
		return nil
	}
	if !result.Valid && result.Error != nil {
		logger.Debug("Image mime type differs from declared type",
			zap.String("declared", result.DeclaredMimeType),
			zap.String("detected", result.MimeType),
		)
	}

	mimeType := result.MimeType
	return &mimeType
}
