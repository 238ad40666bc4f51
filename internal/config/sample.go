package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
)

// Sample returns the configuration written by leapdecide init.
func Sample() *Config {
	c := Default()
	c.Canonicalize.FactColumns = append([]canonical.Column(nil), canonical.HL7FactColumns...)
	return c
}

// WriteSample writes c as YAML.
func WriteSample(w io.Writer, c *Config) error {
	if _, err := fmt.Fprintln(w, "# leapdecide configuration"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
