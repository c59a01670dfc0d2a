/*
 * Copyright 2025 quarrydb.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var sqlLogSilentMode bool

// EnableSQLLogSilent suppresses the query hook output globally, used by
// test harnesses to keep logs quiet.
func EnableSQLLogSilent(b bool) {
	sqlLogSilentMode = b
}

// QueryHook prints executed queries with per-operation coloring. The
// environment variable named by envName toggles it at runtime: unset or
// "0" disables, any other value enables.
type QueryHook struct {
	envName string
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a query hook controlled by the given environment
// variable.
func NewQueryHook(envName string) *QueryHook {
	return &QueryHook{envName: envName, writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if sqlLogSilentMode {
		return
	}
	if env, ok := os.LookupEnv(h.envName); !ok || env == "" || env == "0" {
		return
	}

	duration := time.Since(event.StartTime)
	op := queryOperation(event.Query)
	label := color.New(operationColor(op)).Sprintf("[%s]", op)

	if event.Err != nil {
		fmt.Fprintf(h.writer, "%s %s %s error=%v\n", label, duration, event.Query, event.Err)
		return
	}
	fmt.Fprintf(h.writer, "%s %s %s\n", label, duration, event.Query)
}

func queryOperation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "QUERY"
	}
	return strings.ToUpper(fields[0])
}

func operationColor(op string) color.Attribute {
	switch op {
	case "SELECT":
		return color.FgGreen
	case "INSERT":
		return color.FgBlue
	case "UPDATE":
		return color.FgYellow
	case "DELETE":
		return color.FgRed
	default:
		return color.FgCyan
	}
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime && h.logger != nil {
		h.logger.Warn("Database slow query detected:",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
