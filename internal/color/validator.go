// Package color provides colour-profile utilities: bucket name validation,
// profile validation and the similarity measure used as an auxiliary
// identification signal.
package color

import (
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
)

// bucketNamePattern matches vocabulary bucket names such as "red", "dark_brown" or "blue-grey".
var bucketNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Common validation errors
var (
	ErrInvalidBucketName = errors.New("invalid color bucket name")
	ErrInvalidFrequency  = errors.New("color frequency must be a finite number in [0, 1]")
)

// IsValidBucketName reports whether name is a normalized vocabulary bucket name.
func IsValidBucketName(name string) bool {
	return bucketNamePattern.MatchString(name)
}

// SanitizeBucketName trims and lower-cases a bucket name.
// Returns the normalized name, or empty string if the result is not a valid bucket name.
func SanitizeBucketName(name string) string {
	// HTML escape so markup never survives into a bucket name
	sanitized := html.EscapeString(strings.ToLower(strings.TrimSpace(name)))

	if !IsValidBucketName(sanitized) {
		return ""
	}

	return sanitized
}

// ValidateFrequency checks that a single bucket value is finite and within [0, 1].
func ValidateFrequency(bucket string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidFrequency, bucket, v)
	}
	return nil
}

// Validate checks every bucket name and value in the profile.
func (p Profile) Validate() error {
	for name, v := range p {
		if !IsValidBucketName(name) {
			return fmt.Errorf("%w: got %q", ErrInvalidBucketName, name)
		}
		if err := ValidateFrequency(name, v); err != nil {
			return err
		}
	}
	return nil
}
