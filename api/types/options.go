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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithProxyTargetType is an option that forces the subclass wrap strategy.
func WithProxyTargetType(proxyTargetType bool) Option {
	return func(c *Config) error {
		c.ProxyTargetType = proxyTargetType
		return nil
	}
}

// WithApplyCommonInterceptorsFirst is an option that sets where common interceptors go.
func WithApplyCommonInterceptorsFirst(first bool) Option {
	return func(c *Config) error {
		c.ApplyCommonInterceptorsFirst = first
		return nil
	}
}

// WithCommonInterceptors is an option that sets the registry names of the common interceptors.
func WithCommonInterceptors(names ...string) Option {
	return func(c *Config) error {
		c.CommonInterceptors = append(c.CommonInterceptors, names...)
		return nil
	}
}

// WithAdvisorNamePrefix is an option that sets the candidate advisor name prefix.
func WithAdvisorNamePrefix(prefix string) Option {
	return func(c *Config) error {
		c.AdvisorNamePrefix = prefix
		return nil
	}
}

// WithExposeProxy is an option that exposes the running proxy through the call context.
func WithExposeProxy(expose bool) Option {
	return func(c *Config) error {
		c.ExposeProxy = expose
		return nil
	}
}

// WithFrozen is an option that freezes every proxy configuration after creation.
func WithFrozen(frozen bool) Option {
	return func(c *Config) error {
		c.Frozen = frozen
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
