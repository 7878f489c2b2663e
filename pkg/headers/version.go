package headers

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// DefaultEnvelopeVersion is assumed when a message carries no version header.
const DefaultEnvelopeVersion = "1.0.0"

// ErrIncompatibleVersion is returned when the envelope version fails a constraint.
var ErrIncompatibleVersion = errors.New("incompatible envelope version")

// SetEnvelopeVersion records v under KeyEnvelopeVersion.
func (h *RequestHeaders) SetEnvelopeVersion(v *semver.Version) {
	// Version strings are always printable ASCII, Set cannot fail here.
	_ = h.Set(KeyEnvelopeVersion, v.String())
}

// EnvelopeVersion returns the version recorded in the headers, or DefaultEnvelopeVersion.
func (h *RequestHeaders) EnvelopeVersion() (*semver.Version, error) {
	raw := h.First(KeyEnvelopeVersion)
	if raw == "" {
		raw = DefaultEnvelopeVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrIncompatibleVersion, raw, err)
	}
	return v, nil
}

// CheckEnvelopeVersion verifies the recorded version against c. A nil constraint accepts anything.
func (h *RequestHeaders) CheckEnvelopeVersion(c *semver.Constraints) error {
	if c == nil {
		return nil
	}
	v, err := h.EnvelopeVersion()
	if err != nil {
		return err
	}
	if ok, reasons := c.Validate(v); !ok {
		return fmt.Errorf("%w: %s does not satisfy %s: %v", ErrIncompatibleVersion, v, c, errors.Join(reasons...))
	}
	return nil
}
