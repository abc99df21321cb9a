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
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/nats-io/nkeys"
	"github.com/spf13/afero"
)

// seedFileName is the persisted session key seed under the data dir.
const seedFileName = "instance.nk"

// LoadOrCreateKeyPair returns the session key pair, loading the persisted
// seed when present and generating-and-persisting one otherwise. The key
// pair is reused across runs, not per audit.
func LoadOrCreateKeyPair(
	fs afero.Fs,
	dataDir string,
) (nkeys.KeyPair, error) {
	path := filepath.Join(dataDir, seedFileName)

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat session key seed: %w", err)
	}

	if exists {
		seed, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read session key seed: %w", err)
		}

		kp, err := nkeys.FromSeed(bytes.TrimSpace(seed))
		if err != nil {
			return nil, fmt.Errorf("parse session key seed: %w", err)
		}

		return kp, nil
	}

	kp, err := nkeys.CreateUser()
	if err != nil {
		return nil, fmt.Errorf("generate session key pair: %w", err)
	}

	seed, err := kp.Seed()
	if err != nil {
		return nil, fmt.Errorf("extract session key seed: %w", err)
	}

	if err := fs.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if err := afero.WriteFile(fs, path, seed, 0o600); err != nil {
		return nil, fmt.Errorf("persist session key seed: %w", err)
	}

	return kp, nil
}
