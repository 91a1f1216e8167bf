package export

import (
	"errors"
	"fmt"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// ValidationError reports empty or unusable input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedFormatError reports an unknown Options.Format value.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}

// SerializationError wraps an encoder failure.
type SerializationError struct {
	Format model.Format
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to generate %s export: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ArtifactError wraps an artifact store failure. It fails the job.
type ArtifactError struct {
	Filename string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Filename, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps a notifier failure. It fails the job only when
// delivery confirmation is required.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnsupportedFormat reports whether err is or wraps an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var ue *UnsupportedFormatError
	return errors.As(err, &ue)
}

// IsSerialization reports whether err is or wraps a SerializationError.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// IsArtifact reports whether err is or wraps an ArtifactError.
func IsArtifact(err error) bool {
	var ae *ArtifactError
	return errors.As(err, &ae)
}

// IsDelivery reports whether err is or wraps a DeliveryError.
func IsDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return IsValidation(err) || IsUnsupportedFormat(err)
}
