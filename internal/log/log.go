// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a custom handler and a log level from the
// GIFCTL_LOG env variable.
func InitLogger() {
	level := strings.ToUpper(os.Getenv("GIFCTL_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&CustomHandler{Writer: os.Stderr})

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.ErrorLevel
	}
	log.SetLevel(lvl)
}

// CustomHandler writes one line per entry. It goes to stderr so it never mixes
// with command output.
type CustomHandler struct {
	Writer io.Writer
	mutex  sync.Mutex
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var sb strings.Builder
	sb.WriteString(e.Message)
	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%v", name, e.Fields.Get(name))
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	w := h.Writer
	if w == nil {
		w = os.Stderr
	}
	_, err := fmt.Fprintf(w, "%s %.1s %s\n", timestamp, level, sb.String())
	return err
}
