// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/z5labs/lambdaext/internal/try"

	"gopkg.in/yaml.v3"
)

// Yaml is a Source backed by a YAML document.
type Yaml struct {
	r io.Reader
}

// FromYaml reads a single YAML document from r when applied.
// An io.Closer is closed after reading. An empty document sets nothing.
func FromYaml(r io.Reader) Yaml {
	return Yaml{r: r}
}

// InvalidYamlError wraps the yaml.v3 parse error.
type InvalidYamlError struct {
	Cause error
}

func (e InvalidYamlError) Error() string {
	return fmt.Sprintf("invalid yaml: %s", e.Cause)
}

func (e InvalidYamlError) Unwrap() error {
	return e.Cause
}

func (src Yaml) Apply(store Store) (err error) {
	if c, ok := src.r.(io.Closer); ok {
		defer try.Close(&err, c)
	}

	var doc map[string]any
	err = yaml.NewDecoder(src.r).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return InvalidYamlError{Cause: err}
	}
	return Map(doc).Apply(store)
}
