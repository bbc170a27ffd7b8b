// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import "fmt"

func ExampleRead() {
	src := Map{
		"extension": Map{
			"name": "logs-extension",
		},
	}

	m, err := Read(src)
	if err != nil {
		fmt.Println(err)
		return
	}

	var cfg struct {
		Extension struct {
			Name string `config:"name"`
		} `config:"extension"`
	}
	err = m.Unmarshal(&cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(cfg.Extension.Name)
	// Output: logs-extension
}
