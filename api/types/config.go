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
	"github.com/rulego/weave/utils/maps"
)

// Config defines the configuration of the auto proxy creator and the proxies it builds.
type Config struct {
	// ProxyTargetType forces the subclass wrap strategy for every component,
	// exposing the full concrete method set instead of the declared capabilities.
	ProxyTargetType bool `mapstructure:"proxyTargetType"`
	// ApplyCommonInterceptorsFirst places the common interceptors before the
	// component specific advisors. Defaults to true.
	ApplyCommonInterceptorsFirst bool `mapstructure:"applyCommonInterceptorsFirst"`
	// CommonInterceptors are registry names of interceptors applied to every
	// proxy the creator builds. Unknown names fail at construction.
	CommonInterceptors []string `mapstructure:"commonInterceptors"`
	// AdvisorNamePrefix restricts candidate advisors to Named advisors whose
	// name starts with this prefix. Empty means every advisor is a candidate.
	AdvisorNamePrefix string `mapstructure:"advisorNamePrefix"`
	// ExposeProxy makes the running proxy available through the call context.
	ExposeProxy bool `mapstructure:"exposeProxy"`
	// Frozen rejects advisor changes on built proxies.
	Frozen bool `mapstructure:"frozen"`
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger `mapstructure:"-"`
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ApplyCommonInterceptorsFirst: true,
		Logger:                       DefaultLogger(),
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// DecodeConfig builds a Config from a configuration map such as
// {"proxyTargetType": true, "commonInterceptors": ["audit"]}.
// Keys that are absent keep their defaults.
func DecodeConfig(m map[string]interface{}, opts ...Option) (Config, error) {
	c := NewConfig(opts...)
	if err := maps.Map2Struct(m, &c); err != nil {
		return c, err
	}
	return c, nil
}
