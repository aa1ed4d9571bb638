/*
 * Copyright 2025 The RuleGo Authors.
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

package cache

import (
	"fmt"
	"strings"
)

// Operation is one cache operation attached to a method.
type Operation interface {
	// Base returns the settings shared by every kind of operation.
	Base() *BaseOperation
	// Validate checks the operation settings.
	Validate() error
}

// BaseOperation holds the settings shared by every operation.
type BaseOperation struct {
	// Name describes the operation in logs, optional.
	Name string
	// CacheNames are the caches the operation works on.
	CacheNames []string
	// Key is the key expression, e.g. "#id". Empty means the key generator builds the key.
	Key string
	// KeyGenerator is the registry name of a KeyGenerator. Exclusive with Key.
	KeyGenerator string
	// CacheManager is the registry name of a types.CacheManager.
	CacheManager string
	// CacheResolver is the registry name of a CacheResolver. Exclusive with CacheManager.
	CacheResolver string
	// Condition must evaluate to true for the operation to apply. Empty always applies.
	Condition string
	// ArgNames names the call arguments in order so expressions can refer to
	// them as #name. p0..pN and a0..aN are always available.
	ArgNames []string
}

// Base implements Operation.
func (o *BaseOperation) Base() *BaseOperation {
	return o
}

// Validate implements Operation.
func (o *BaseOperation) Validate() error {
	if o.Key != "" && o.KeyGenerator != "" {
		return fmt.Errorf("%w: %s sets both key and key generator", ErrInvalidOperation, o.describe())
	}
	if o.CacheManager != "" && o.CacheResolver != "" {
		return fmt.Errorf("%w: %s sets both cache manager and cache resolver", ErrInvalidOperation, o.describe())
	}
	return nil
}

func (o *BaseOperation) describe() string {
	if o.Name != "" {
		return o.Name
	}
	return "[" + strings.Join(o.CacheNames, ",") + "]"
}

func (o *BaseOperation) String() string {
	var sb strings.Builder
	sb.WriteString(o.describe())
	if o.Key != "" {
		sb.WriteString(" key=" + o.Key)
	}
	if o.Condition != "" {
		sb.WriteString(" condition=" + o.Condition)
	}
	return sb.String()
}

// Cacheable returns the cached result when present, otherwise runs the
// method and stores the result.
//
// Cacheable 命中缓存时直接返回，否则执行方法并写入缓存。
type Cacheable struct {
	BaseOperation
	// Unless vetoes storing the result when it evaluates to true. #result is bound.
	Unless string
}

func (o *Cacheable) String() string {
	return "Cacheable" + o.BaseOperation.String()
}

// CachePut always runs the method and stores its result.
//
// CachePut 总是执行方法并更新缓存。
type CachePut struct {
	BaseOperation
	// Unless vetoes storing the result when it evaluates to true. #result is bound.
	Unless string
}

func (o *CachePut) String() string {
	return "CachePut" + o.BaseOperation.String()
}

// CacheEvict removes entries.
//
// CacheEvict 清除缓存。
type CacheEvict struct {
	BaseOperation
	// AllEntries clears the whole caches instead of evicting one key.
	AllEntries bool
	// BeforeInvocation evicts before the method runs, so the eviction
	// happens whatever the outcome of the call.
	BeforeInvocation bool
}

// Validate implements Operation.
func (o *CacheEvict) Validate() error {
	if o.AllEntries && o.Key != "" {
		return fmt.Errorf("%w: %s clears all entries and sets a key", ErrInvalidOperation, o.describe())
	}
	return o.BaseOperation.Validate()
}

func (o *CacheEvict) String() string {
	s := "CacheEvict" + o.BaseOperation.String()
	if o.AllEntries {
		s += " allEntries"
	}
	if o.BeforeInvocation {
		s += " beforeInvocation"
	}
	return s
}
