package ai

import "strings"

// VisionRegistry is a capability table mapping model-name fragments to image
// support. The fragment list comes from configuration so new vision-capable
// model families can be added without a code change.
type VisionRegistry struct {
	patterns []string
}

func NewVisionRegistry(patterns []string) *VisionRegistry {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &VisionRegistry{patterns: cleaned}
}

// Supports reports whether the named model is believed to accept images.
// Substring matching against the pattern table is heuristic on purpose: the
// caller never knows the full model catalog of an arbitrary endpoint.
func (r *VisionRegistry) Supports(model string) bool {
	model = strings.ToLower(model)
	for _, p := range r.patterns {
		if strings.Contains(model, p) {
			return true
		}
	}
	return false
}

// Error signatures that indicate the provider rejected the image payload
// rather than failing outright. Kept as data so the mapping stays testable.
var imageRejectionSignatures = []string{"image_url", "400"}

// IsImageRejection reports whether a model-call failure looks like an
// image-payload rejection. These are downgraded to a soft in-persona reply
// instead of surfacing an error, so the companion never breaks character
// over a picture.
func IsImageRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sig := range imageRejectionSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
