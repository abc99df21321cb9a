// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package probe

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
)

// LoadScript reads a JSON probe script from path.
func LoadScript(
	fs afero.Fs,
	path string,
) (Script, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read probe script %s: %w", path, err)
	}

	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse probe script %s: %w", path, err)
	}

	if len(script) == 0 {
		return nil, fmt.Errorf("probe script %s is empty", path)
	}

	return script, nil
}

// DefaultScript is the built-in script used when none is configured: a
// pair of read-only echo probes plus a durable store/fetch pair.
func DefaultScript() Script {
	return Script{
		{Name: "echo-a", Input: "echo:alpha", Expected: "alpha", ReadOnly: true},
		{Name: "echo-b", Input: "echo:bravo", Expected: "bravo", ReadOnly: true},
		{Name: "store", Input: "put:probe-key:probe-value", Expected: "stored", ReadOnly: false},
		{Name: "fetch", Input: "get:probe-key", Expected: "probe-value", ReadOnly: true},
	}
}
