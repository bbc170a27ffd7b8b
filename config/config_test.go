// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/lambdaext/config/key"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFunc func(key.Keyer, any) error

func (f storeFunc) Set(k key.Keyer, v any) error {
	return f(k, v)
}

type readFunc func([]byte) (int, error)

func (f readFunc) Read(b []byte) (int, error) {
	return f(b)
}

func TestRead(t *testing.T) {
	t.Run("will override earlier values", func(t *testing.T) {
		t.Run("if a later source sets the same key", func(t *testing.T) {
			base := FromYaml(strings.NewReader(`
extension:
  name: base
  runtime_api: 127.0.0.1:9001
`))
			override := FromYaml(strings.NewReader(`
extension:
  name: override
`))

			m, err := Read(base, override)
			require.Nil(t, err)

			var cfg struct {
				Extension struct {
					Name       string `config:"name"`
					RuntimeAPI string `config:"runtime_api"`
				} `config:"extension"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "override", cfg.Extension.Name) {
				return
			}
			if !assert.Equal(t, "127.0.0.1:9001", cfg.Extension.RuntimeAPI) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a source fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			src := FromYaml(readFunc(func(b []byte) (int, error) {
				return 0, readErr
			}))

			_, err := Read(src)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})
	})
}

func TestManager_Unmarshal(t *testing.T) {
	t.Run("will decode", func(t *testing.T) {
		t.Run("durations from strings", func(t *testing.T) {
			m, err := Read(Map{"timeout": "5s"})
			require.Nil(t, err)

			var cfg struct {
				Timeout time.Duration `config:"timeout"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 5*time.Second, cfg.Timeout) {
				return
			}
		})

		t.Run("text unmarshalers from strings", func(t *testing.T) {
			m, err := Read(Map{"level": "WARN"})
			require.Nil(t, err)

			var cfg struct {
				Level slog.Level `config:"level"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, slog.LevelWarn, cfg.Level) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a duration can not be parsed", func(t *testing.T) {
			m, err := Read(Map{"timeout": "soon"})
			require.Nil(t, err)

			var cfg struct {
				Timeout time.Duration `config:"timeout"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.ErrorContains(t, err, "invalid duration") {
				return
			}
		})
	})
}

func TestMap_Apply(t *testing.T) {
	t.Run("will set nested values with a key.Chain", func(t *testing.T) {
		m := Map{
			"otel": map[string]any{
				"exporter": "stdout",
			},
		}

		var keys []string
		store := storeFunc(func(k key.Keyer, v any) error {
			keys = append(keys, k.Key())
			return nil
		})

		err := m.Apply(store)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, []string{"otel.exporter"}, keys) {
			return
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the store fails", func(t *testing.T) {
			setErr := errors.New("failed to set")
			store := storeFunc(func(k key.Keyer, v any) error {
				return setErr
			})

			err := Map{"hello": "world"}.Apply(store)
			if !assert.ErrorIs(t, err, setErr) {
				return
			}
		})
	})
}

func TestMap_Set(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the key chain is empty", func(t *testing.T) {
			err := Map{}.Set(key.Chain{}, 1)

			var eerr EmptyKeyChainError
			if !assert.ErrorAs(t, err, &eerr) {
				return
			}
		})

		t.Run("if a leaf value is used as a parent key", func(t *testing.T) {
			m := Map{"hello": "world"}

			err := m.Set(key.Chain{key.Name("hello"), key.Name("there")}, 1)

			var uerr UnexpectedKeyValueTypeError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
			if !assert.Equal(t, "hello", uerr.Key) {
				return
			}
		})
	})
}

func TestYaml_Apply(t *testing.T) {
	t.Run("will set nothing", func(t *testing.T) {
		t.Run("if the io.Reader is empty", func(t *testing.T) {
			m := Map{}
			err := FromYaml(strings.NewReader("")).Apply(m)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Empty(t, m) {
				return
			}
		})
	})

	t.Run("will return an InvalidYamlError", func(t *testing.T) {
		t.Run("if the io.Reader contains invalid YAML", func(t *testing.T) {
			err := FromYaml(strings.NewReader(`hello`)).Apply(Map{})

			var ierr InvalidYamlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotNil(t, ierr.Unwrap()) {
				return
			}
		})
	})
}

func TestTextTemplateRenderer_Read(t *testing.T) {
	t.Run("will render", func(t *testing.T) {
		t.Run("environment variables with the env func", func(t *testing.T) {
			t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")

			r := RenderTextTemplate(strings.NewReader(`runtime_api: {{env "AWS_LAMBDA_RUNTIME_API"}}`))

			m, err := Read(FromYaml(r))
			require.Nil(t, err)

			var cfg struct {
				RuntimeAPI string `config:"runtime_api"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "127.0.0.1:9001", cfg.RuntimeAPI) {
				return
			}
		})

		t.Run("the default if the piped value is empty", func(t *testing.T) {
			t.Setenv("LAMBDAEXT_TEST_UNSET", "")

			r := RenderTextTemplate(strings.NewReader(`level: {{env "LAMBDAEXT_TEST_UNSET" | default "INFO"}}`))

			m, err := Read(FromYaml(r))
			require.Nil(t, err)

			var cfg struct {
				Level string `config:"level"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "INFO", cfg.Level) {
				return
			}
		})

		t.Run("registered template funcs", func(t *testing.T) {
			r := RenderTextTemplate(
				strings.NewReader(`name: {{name}}`),
				TemplateFunc("name", func() string { return "logs-extension" }),
			)

			m, err := Read(FromYaml(r))
			require.Nil(t, err)

			var cfg struct {
				Name string `config:"name"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "logs-extension", cfg.Name) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the template can not be parsed", func(t *testing.T) {
			r := RenderTextTemplate(strings.NewReader(`name: {{`))

			_, err := Read(FromYaml(r))

			var perr TextTemplateParseError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
		})

		t.Run("if the template fails to execute", func(t *testing.T) {
			r := RenderTextTemplate(
				strings.NewReader(`name: {{fail}}`),
				TemplateFunc("fail", func() (string, error) { return "", errors.New("boom") }),
			)

			_, err := Read(FromYaml(r))

			var eerr TextTemplateExecError
			if !assert.ErrorAs(t, err, &eerr) {
				return
			}
		})
	})
}
