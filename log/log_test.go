// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextFollowsDefault(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	SetDefault(JSONHandler(&buf, LevelDebug))
	defer SetDefault(DiscardHandler())

	logger.With("pool", 1).Info("deposited", "amount", "100")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "deposited", rec["msg"])
	assert.Equal(t, "test", rec["pkg"])
	assert.Equal(t, float64(1), rec["pool"])
	assert.Equal(t, "100", rec["amount"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewTerminalHandler(&buf, LevelInfo, false))
	defer SetDefault(DiscardHandler())

	logger := WithContext("pkg", "test")
	logger.Debug("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, "shown"))
}

func TestFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelInfo, FromVerbosity(3))
	assert.Equal(t, LevelDebug, FromVerbosity(4))
}
