/*
 * Copyright 2023 The RuleGo Authors.
 *
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

package types

import (
	"log"

	"go.uber.org/zap"
)

// Logger is the logging interface used across the module.
type Logger interface {
	Printf(format string, v ...interface{})
}

var _ Logger = &log.Logger{}
var _ Logger = (*ZapLogger)(nil)

// ZapLogger adapts a zap.SugaredLogger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil l yields a no-op logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

// Printf logs at info level.
func (l *ZapLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Sugar returns the underlying sugared logger.
func (l *ZapLogger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// DefaultLogger returns a `Logger` implementation backed by a production zap logger.
func DefaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return NewZapLogger(nil)
	}
	return NewZapLogger(l)
}

// NewLogger returns custom, or DefaultLogger() when custom is nil.
func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return NewZapLogger(nil)
}
