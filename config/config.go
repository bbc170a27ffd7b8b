// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config merges an ordered list of sources into one key value
// tree and decodes that tree into the caller's config struct.
package config

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/z5labs/lambdaext/config/key"

	"github.com/go-viper/mapstructure/v2"
)

// Store is the tree sources write into.
type Store interface {
	Set(key.Keyer, any) error
}

// Source writes its values into a Store.
type Source interface {
	Apply(Store) error
}

type Manager struct {
	store Map
}

// Read merges srcs left to right, so the last source to set a key wins.
func Read(srcs ...Source) (*Manager, error) {
	store := make(Map)
	for _, src := range srcs {
		err := src.Apply(store)
		if err != nil {
			return nil, err
		}
	}
	return &Manager{store: store}, nil
}

// Unmarshal fills v, matching keys against `config` struct tags.
// String values may target time.Duration or encoding.TextUnmarshaler fields.
func (m *Manager) Unmarshal(v any) error {
	dec, err := mapstructure.NewDecoder(decoderConfig(v))
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(m.store))
}

func decoderConfig(v any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           v,
		WeaklyTypedInput: true,
		DecodeHook: composeDecodeHooks(
			textUnmarshalerHookFunc(),
			timeDurationHookFunc(),
		),
	}
}

// returned by a hook which does not apply to the given types
var errInvalidDecodeCondition = errors.New("invalid decode condition")

// TypeCoercionError is returned by Unmarshal when a hook recognized
// the target field type but could not convert the value into it.
type TypeCoercionError struct {
	From  reflect.Type
	To    reflect.Type
	Cause error
}

func (e TypeCoercionError) Error() string {
	return fmt.Sprintf("failed to coerce value from %s to %s: %s", e.From, e.To, e.Cause)
}

func (e TypeCoercionError) Unwrap() error {
	return e.Cause
}

// composeDecodeHooks runs hs until one applies. Values no hook
// applies to are passed through for mapstructure to decode.
func composeDecodeHooks(hs ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	return func(f, t reflect.Value) (any, error) {
		for _, h := range hs {
			v, err := mapstructure.DecodeHookExec(h, f, t)
			if err == nil {
				return v, nil
			}
			if errors.Is(err, errInvalidDecodeCondition) {
				continue
			}
			return nil, TypeCoercionError{
				From:  f.Type(),
				To:    t.Type(),
				Cause: err,
			}
		}
		return f.Interface(), nil
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		result := reflect.New(t).Interface()
		u, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return nil, errInvalidDecodeCondition
		}
		err := u.UnmarshalText([]byte(data.(string)))
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(result).Elem().Interface(), nil
	}
}

func timeDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return nil, errInvalidDecodeCondition
		}

		switch f.Kind() {
		case reflect.String:
			return time.ParseDuration(data.(string))
		case reflect.Int:
			return time.Duration(int64(data.(int))), nil
		default:
			return nil, errInvalidDecodeCondition
		}
	}
}
