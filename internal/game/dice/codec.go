package dice

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Spec is the flat, self-describing encoding of a RollConfig used for
// persistence and content files.
type Spec struct {
	Sides     int           `json:"sides" yaml:"sides"`
	Count     int           `json:"count" yaml:"count"`
	Modifier  int           `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Advantage AdvantageMode `json:"advantage,omitempty" yaml:"advantage,omitempty"`
	Clamp     *Clamp        `json:"clamp,omitempty" yaml:"clamp,omitempty"`
	Selection *Selection    `json:"selection,omitempty" yaml:"selection,omitempty"`
}

// Spec flattens c.
func (c RollConfig) Spec() Spec {
	s := Spec{Sides: c.Sides, Count: c.Count, Modifier: c.Modifier}
	switch r := c.Rule.(type) {
	case Advantage:
		s.Advantage = r.Mode
	case Pool:
		if r.Clamp != nil {
			cl := *r.Clamp
			s.Clamp = &cl
		}
		if r.Selection != nil {
			sel := *r.Selection
			s.Selection = &sel
		}
	}
	return s
}

// Config rebuilds the RollConfig described by s. Advantage combined with a
// clamp or selection has no RollConfig form and is rejected.
//
// Postcondition: Returns a RollConfig (not yet validated) or a *ConfigError.
func (s Spec) Config() (RollConfig, error) {
	cfg := RollConfig{Sides: s.Sides, Count: s.Count, Modifier: s.Modifier}
	switch {
	case s.Advantage != "" && (s.Clamp != nil || s.Selection != nil):
		return RollConfig{}, configErr("rule", ErrInvalidRule, "advantage cannot be combined with clamp or selection")
	case s.Advantage != "":
		cfg.Rule = Advantage{Mode: s.Advantage}
	case s.Clamp != nil || s.Selection != nil:
		p := Pool{}
		if s.Clamp != nil {
			cl := *s.Clamp
			p.Clamp = &cl
		}
		if s.Selection != nil {
			sel := *s.Selection
			p.Selection = &sel
		}
		cfg.Rule = p
	}
	return cfg, nil
}

// Clone returns a deep copy of c that shares no rule pointers with it.
func (c RollConfig) Clone() RollConfig {
	cfg, err := c.Spec().Config()
	if err != nil {
		// A Spec built from a RollConfig never mixes advantage with pool rules.
		panic("dice: Clone: " + err.Error())
	}
	return cfg
}

// MarshalJSON encodes c as its Spec.
func (c RollConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Spec())
}

// UnmarshalJSON decodes a Spec into c.
func (c *RollConfig) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// MarshalYAML encodes c as its Spec.
func (c RollConfig) MarshalYAML() (any, error) {
	return c.Spec(), nil
}

// UnmarshalYAML decodes a Spec into c.
func (c *RollConfig) UnmarshalYAML(node *yaml.Node) error {
	var s Spec
	if err := node.Decode(&s); err != nil {
		return err
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}
