package contenttypes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/h5pruntime/pkg/h5p/runtime"
	"github.com/randalmurphal/h5pruntime/pkg/h5p/xapi"
)

// AdvancedTextName is the machine name of AdvancedText.
const AdvancedTextName = "H5P.AdvancedText"

// AdvancedText shows a block of formatted text. It has no score.
type AdvancedText struct {
	*runtime.ContentType
	text string
}

// NewAdvancedText is the H5P.AdvancedText constructor.
func NewAdvancedText(_ context.Context, raw json.RawMessage, _ int64, extras runtime.Extras) (runtime.Instance, error) {
	var params struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", AdvancedTextName, err)
	}
	return &AdvancedText{ContentType: extras.Base, text: params.Text}, nil
}

// Attach implements runtime.Instance.
func (a *AdvancedText) Attach(c runtime.Container) {
	c.AddClass("h5p-advanced-text")
	c.SetText(xapi.StripMarkup(a.text))
}

// Text returns the raw text.
func (a *AdvancedText) Text() string {
	return a.text
}
