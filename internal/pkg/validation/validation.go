package validation

import (
	"math"
	"net/url"
	"strings"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	MaxPhotos         = 10
	MaxTags           = 10
)

// IsValidTitle requires a non-blank title of at most MaxTitleLen characters.
func IsValidTitle(title string) bool {
	return strings.TrimSpace(title) != "" && len(title) <= MaxTitleLen
}

// IsValidDescription requires a non-blank description of at most
// MaxDescriptionLen characters.
func IsValidDescription(desc string) bool {
	return strings.TrimSpace(desc) != "" && len(desc) <= MaxDescriptionLen
}

// IsValidPhotoURL requires an absolute http(s) URL.
func IsValidPhotoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidPhotoList checks count and each URL.
func IsValidPhotoList(photos []string) bool {
	if len(photos) > MaxPhotos {
		return false
	}
	for _, p := range photos {
		if !IsValidPhotoURL(p) {
			return false
		}
	}
	return true
}

// IsValidTagList checks count and that no tag is blank.
func IsValidTagList(tags []string) bool {
	if len(tags) > MaxTags {
		return false
	}
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return false
		}
	}
	return true
}

// IsValidAmount requires a positive finite number (bid amounts).
func IsValidAmount(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}

// IsValidMinAsk requires a non-negative finite number (optional asking price).
func IsValidMinAsk(minAsk float64) bool {
	return !math.IsNaN(minAsk) && !math.IsInf(minAsk, 0) && minAsk >= 0
}
