package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrSessionNotFound       = fmt.Errorf("viewport session: %w", ErrNotFound)
	ErrPackageNotFound       = fmt.Errorf("geopackage: %w", ErrNotFound)
	ErrLayerNotFound         = fmt.Errorf("layer: %w", ErrNotFound)
	ErrInvalidSRID           = fmt.Errorf("srid: %w", ErrInvalidInput)
	ErrDegenerateTransform   = fmt.Errorf("degenerate transform: %w", ErrInternal)
	ErrUnsupportedProjection = fmt.Errorf("projection: %w", ErrUnsupported)
	ErrReprojectionFailed    = fmt.Errorf("reprojection: %w", ErrUnavailable)
	ErrStorageUnavailable    = fmt.Errorf("storage: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// TransformError is raised when screen/world transforms cannot be built.
type TransformError struct {
	Op     string      // Operation that failed
	Screen *ScreenRect // Screen rectangle in use (optional)
	World  *Envelope   // World envelope in use (optional)
	Detail string      // What was wrong with the geometry
	Err    error       // Underlying error
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	msg := fmt.Sprintf("transform error during %s: %s", e.Op, e.Detail)
	if e.Screen != nil {
		msg += fmt.Sprintf(" (screen %s", e.Screen)
		if e.World != nil {
			msg += fmt.Sprintf(", world %s", e.World)
		}
		msg += ")"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransformError) Unwrap() error {
	return e.Err
}

// ReprojectionError represents a failed envelope reprojection.
type ReprojectionError struct {
	SourceSRID int   // Reference system of the input envelope
	TargetSRID int   // Requested reference system
	Err        error // Underlying error
}

// Error implements the error interface.
func (e *ReprojectionError) Error() string {
	return fmt.Sprintf("reprojection from EPSG:%d to EPSG:%d failed: %v",
		e.SourceSRID, e.TargetSRID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReprojectionError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ScanError represents an error while scanning features of a layer.
type ScanError struct {
	PackageID string // GeoPackage identifier
	Layer     string // Layer name
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error for layer %s in package %s: %v",
		e.Layer, e.PackageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
