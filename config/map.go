// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"

	"github.com/z5labs/lambdaext/config/key"
)

// Map is an ordinary map[string]any which is both a Source and a Store.
type Map map[string]any

// Apply implements the Source interface. It recursively walks the
// map and sets every leaf value on store under its key.Chain.
func (m Map) Apply(store Store) error {
	return walkMap(m, store, nil)
}

func walkMap(m map[string]any, store Store, chain key.Chain) error {
	for k, v := range m {
		next := append(chain[:len(chain):len(chain)], key.Name(k))

		sub, ok := asMap(v)
		if ok {
			err := walkMap(sub, store, next)
			if err != nil {
				return err
			}
			continue
		}

		err := store.Set(next, v)
		if err != nil {
			return err
		}
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case Map:
		return x, true
	case map[string]any:
		return x, true
	default:
		return nil, false
	}
}

// UnknownKeyerError
type UnknownKeyerError struct {
	Key key.Keyer
}

// Error implements the error interface.
func (e UnknownKeyerError) Error() string {
	return fmt.Sprintf("config source tried setting config value with unknown key.Keyer: %s", e.Key.Key())
}

// EmptyKeyChainError
type EmptyKeyChainError struct {
	Value any
}

// Error implements the error interface.
func (e EmptyKeyChainError) Error() string {
	return fmt.Sprintf("attempted to set value to an empty key chain: %v", e.Value)
}

// UnexpectedKeyValueTypeError occurs when a key which already holds a leaf
// value is used as the parent of a nested key.
type UnexpectedKeyValueTypeError struct {
	Key          string
	ExpectedType string
}

// Error implements the error interface.
func (e UnexpectedKeyValueTypeError) Error() string {
	return fmt.Sprintf("expected key value to be a %s: %s", e.ExpectedType, e.Key)
}

// Set implements the Store interface.
func (m Map) Set(k key.Keyer, v any) error {
	switch x := k.(type) {
	case key.Name:
		m[string(x)] = v
		return nil
	case key.Chain:
		return m.setChain(x, v)
	default:
		return UnknownKeyerError{Key: k}
	}
}

func (m Map) setChain(chain key.Chain, v any) error {
	if len(chain) == 0 {
		return EmptyKeyChainError{Value: v}
	}
	if len(chain) == 1 {
		return m.Set(chain[0], v)
	}

	root := chain[0].Key()
	old, ok := m[root]
	if !ok || old == nil {
		old = make(map[string]any)
		m[root] = old
	}

	sub, ok := asMap(old)
	if !ok {
		return UnexpectedKeyValueTypeError{
			Key:          root,
			ExpectedType: "map[string]any",
		}
	}
	return Map(sub).setChain(chain[1:], v)
}
