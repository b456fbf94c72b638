package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/binbin1213/GAGA-Client/internal/model"
)

var errEmptyDescriptor = errors.New("descriptor is empty")

// parseDescriptor reads the JSON captured by the browser extension
func parseDescriptor(text string) (model.VideoDescriptor, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.VideoDescriptor{}, errEmptyDescriptor
	}

	var desc model.VideoDescriptor
	if err := json.Unmarshal([]byte(text), &desc); err != nil {
		return model.VideoDescriptor{}, fmt.Errorf("parse descriptor: %w", err)
	}
	desc.Title = strings.TrimSpace(desc.Title)
	desc.ManifestURL = strings.TrimSpace(desc.ManifestURL)

	if err := desc.Validate(); err != nil {
		return model.VideoDescriptor{}, err
	}
	return desc, nil
}
