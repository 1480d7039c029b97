// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package localtlw

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/tlw"
)

// statusLog writes records in the format of the autotest status log.
//
// Each record is a single tab separated line:
//
//	<indent><status>\t<subdir>\t<operation>\ttimestamp=<unix>\tlocaltime=<time>\t<message>
//
// Records between START and END are indented by one more tab.
type statusLog struct {
	mu     sync.Mutex
	w      io.Writer
	indent int
}

func newStatusLog(w io.Writer) *statusLog {
	return &statusLog{w: w}
}

// write appends the record to the log.
func (l *statusLog) write(ctx context.Context, rec *tlw.StatusRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if isEnd(rec.Status) && l.indent > 0 {
		l.indent--
	}
	line := formatStatus(ctx, rec, l.indent)
	if rec.Status == tlw.StatusStart {
		l.indent++
	}
	_, err := io.WriteString(l.w, line)
	return errors.Annotate(err, "write status %q", rec.Subdir).Err()
}

func isEnd(s tlw.StatusCode) bool {
	return s == tlw.StatusEndGood || s == tlw.StatusEndFail
}

// formatStatus renders the record as a single line.
func formatStatus(ctx context.Context, rec *tlw.StatusRecord, indent int) string {
	now := clock.Now(ctx)
	operation := rec.Operation
	if operation == "" {
		operation = "----"
	}
	fields := []string{
		string(rec.Status),
		rec.Subdir,
		operation,
		fmt.Sprintf("timestamp=%d", now.Unix()),
		fmt.Sprintf("localtime=%s", now.Local().Format("Jan 02 15:04:05")),
	}
	if msg := sanitizeMessage(rec.Message); msg != "" {
		fields = append(fields, msg)
	}
	return strings.Repeat("\t", indent) + strings.Join(fields, "\t") + "\n"
}

// sanitizeMessage keeps the message on a single line.
func sanitizeMessage(msg string) string {
	r := strings.NewReplacer("\t", "    ", "\r\n", " ", "\n", " ")
	return strings.TrimSpace(r.Replace(msg))
}
