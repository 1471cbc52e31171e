// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestCustomHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: &CustomHandler{Writer: &buf}, Level: log.DebugLevel}

	logger.WithError(errors.New("boom")).Warnf("disk write failed: %s", "abc")

	line := buf.String()
	assert.Contains(t, line, " W disk write failed: abc error=boom\n")
}

func TestInitLogger(t *testing.T) {
	t.Setenv("GIFCTL_LOG", "debug")
	InitLogger()
	assert.Equal(t, log.DebugLevel, log.Log.(*log.Logger).Level)

	t.Setenv("GIFCTL_LOG", "nonsense")
	InitLogger()
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)

	t.Setenv("GIFCTL_LOG", "")
	InitLogger()
	assert.Equal(t, log.ErrorLevel, log.Log.(*log.Logger).Level)
}
