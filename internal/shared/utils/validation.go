package utils

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// Payload limits for the bridge
const (
	MaxPayloadSize  = 16 * 1024 * 1024 // 16MB - run request including context
	MaxScriptSize   = 1 * 1024 * 1024  // 1MB - script source
	MaxContextDepth = 64               // nesting of environment and variable data
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidPayload  = errors.New("invalid payload")
)

// SizeValidator validates payload size limits
type SizeValidator struct {
	maxSize int
}

// NewSizeValidator creates a new validator with the specified max size
func NewSizeValidator(maxSize int) *SizeValidator {
	return &SizeValidator{maxSize: maxSize}
}

// DefaultPayloadValidator returns a validator with the MaxPayloadSize limit
func DefaultPayloadValidator() *SizeValidator {
	return NewSizeValidator(MaxPayloadSize)
}

// MaxSize returns the limit
func (v *SizeValidator) MaxSize() int {
	return v.maxSize
}

// ValidateSize checks if the data size is within limits
func (v *SizeValidator) ValidateSize(data []byte) error {
	if size := len(data); size > v.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrPayloadTooLarge, size, v.maxSize)
	}
	return nil
}

// ValidateScript checks script size and encoding
func ValidateScript(script string) error {
	if len(script) > MaxScriptSize {
		return fmt.Errorf("%w: script of %d bytes exceeds maximum %d bytes", ErrPayloadTooLarge, len(script), MaxScriptSize)
	}
	if !utf8.ValidString(script) {
		return fmt.Errorf("%w: script is not valid UTF-8", ErrInvalidPayload)
	}
	return nil
}

// ValidateContext checks the nesting depth of the free-form data a request
// context carries.
func ValidateContext(rc *types.RequestContext) error {
	if rc == nil {
		return nil
	}
	data := map[string]any{
		"environment":     rc.Environment.Data,
		"baseEnvironment": rc.BaseEnvironment.Data,
		"globals":         rc.Globals,
	}
	if rc.IterationData != nil {
		data["iterationData"] = rc.IterationData.Data
	}
	if rc.TransientVariables != nil {
		data["transientVariables"] = rc.TransientVariables.Data
	}
	for name, value := range data {
		if err := ValidateJSONDepth(value, MaxContextDepth); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, name, err)
		}
	}
	return nil
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data any, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data any, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}
