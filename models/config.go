package models

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultHiddenWidth is the width of the contact feature vector handed to the
// layout synthesizer.
const DefaultHiddenWidth = 512

// ObjectWidth is the number of non-class values per object (translation xyz,
// size xyz, angle). The layout network input is numClasses+ObjectWidth wide.
const ObjectWidth = 7

// ContactConfig holds the hyperparameters of the contact predictor.
type ContactConfig struct {
	SegLen      int // sequence length, same as max_frame
	EncoderMode int
	DecoderMode int
	NLayer      int
	NHead       int
	FVert       int
	DimFF       int
	DHid        int
	PosaPath    string
}

// Validate checks that every size is positive and fills DHid when unset.
func (c *ContactConfig) Validate() error {
	if c.DHid == 0 {
		c.DHid = DefaultHiddenWidth
	}
	checks := []struct {
		name string
		v    int
	}{
		{"seg_len", c.SegLen},
		{"n_layer", c.NLayer},
		{"n_head", c.NHead},
		{"f_vert", c.FVert},
		{"dim_ff", c.DimFF},
		{"d_hid", c.DHid},
	}
	for _, ch := range checks {
		if ch.v <= 0 {
			return errors.Errorf("contact config: %s must be positive, got %d", ch.name, ch.v)
		}
	}
	return nil
}

func (c ContactConfig) params() map[string]interface{} {
	return map[string]interface{}{
		"seg_len":      c.SegLen,
		"encoder_mode": c.EncoderMode,
		"decoder_mode": c.DecoderMode,
		"n_layer":      c.NLayer,
		"n_head":       c.NHead,
		"f_vert":       c.FVert,
		"dim_ff":       c.DimFF,
		"d_hid":        c.DHid,
		"posa_path":    c.PosaPath,
	}
}

// NetworkConfig is the "network" section of the layout config file.
type NetworkConfig struct {
	Type                  string `yaml:"type"`
	NLayers               int    `yaml:"n_layers"`
	NHeads                int    `yaml:"n_heads"`
	QueryDimensions       int    `yaml:"query_dimensions"`
	ValueDimensions       int    `yaml:"value_dimensions"`
	FeedForwardDimensions int    `yaml:"feed_forward_dimensions"`
	HiddenDims            int    `yaml:"hidden_dims"`
	Hidden2Output         string `yaml:"hidden2output_layer"`
	WithExtraFC           bool   `yaml:"with_extra_fc"`
	BboxOutput            string `yaml:"bbox_output"`
	NMixtures             int    `yaml:"n_mixtures"`
}

// FeatureExtractorConfig is the "feature_extractor" section.
type FeatureExtractorConfig struct {
	Name          string `yaml:"name"`
	FeatureSize   int    `yaml:"feature_size"`
	Freeze        bool   `yaml:"freeze_bn"`
	InputChannels int    `yaml:"input_channels"`
}

// LayoutConfig is the layout synthesizer's network configuration. Only the
// sections the evaluator looks at are typed; the raw document is forwarded to
// the model service untouched.
type LayoutConfig struct {
	Network          NetworkConfig          `yaml:"network"`
	FeatureExtractor FeatureExtractorConfig `yaml:"feature_extractor"`

	// NumClasses is not read from the file; it is the dataset's category
	// count, set by WithClasses.
	NumClasses int `yaml:"-"`

	raw []byte
}

// LoadLayoutConfig reads the YAML file at path.
func LoadLayoutConfig(path string) (*LayoutConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read layout config %s", path)
	}
	cfg, err := ParseLayoutConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "layout config %s", path)
	}
	return cfg, nil
}

// ParseLayoutConfig decodes a layout config document.
func ParseLayoutConfig(data []byte) (*LayoutConfig, error) {
	cfg := &LayoutConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse yaml")
	}
	if cfg.Network.Type == "" {
		return nil, errors.New("network.type is required")
	}
	if cfg.Network.NLayers < 0 || cfg.Network.NHeads < 0 {
		return nil, errors.Errorf("network has negative size (n_layers=%d, n_heads=%d)", cfg.Network.NLayers, cfg.Network.NHeads)
	}
	cfg.raw = data
	return cfg, nil
}

// WithClasses returns a copy configured for numClasses object categories.
func (c LayoutConfig) WithClasses(numClasses int) *LayoutConfig {
	c.NumClasses = numClasses
	return &c
}

// InputDims is the per-object input width of the layout network.
func (c *LayoutConfig) InputDims() int { return c.NumClasses + ObjectWidth }

func (c *LayoutConfig) params() map[string]interface{} {
	return map[string]interface{}{
		"input_dims":  c.InputDims(),
		"n_classes":   c.NumClasses,
		"network":     c.Network.Type,
		"config_yaml": string(c.raw),
	}
}
