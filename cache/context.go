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
	"github.com/rulego/weave/api/types"
)

// operationMetadata is the per operation state resolved once.
type operationMetadata struct {
	keyGenerator KeyGenerator
	resolver     CacheResolver
}

// operationContext binds one operation to the current call.
type operationContext struct {
	op        Operation
	base      *BaseOperation
	meta      *operationMetadata
	inv       types.Invocation
	evaluator types.Evaluator
	caches    []types.Cache
	argNames  []string

	conditionDone    bool
	conditionPassing bool
	keyDone          bool
	key              string
}

func (c *operationContext) bindings(result any, hasResult bool) map[string]any {
	return Bindings(c.inv.Target(), c.inv.Method(), c.inv.Arguments(), c.argNames, result, hasResult)
}

// isConditionPassing evaluates the condition once per call.
func (c *operationContext) isConditionPassing(result any, hasResult bool) (bool, error) {
	if c.conditionDone {
		return c.conditionPassing, nil
	}
	passing := true
	if c.base.Condition != "" {
		var err error
		if passing, err = c.evaluator.EvaluateCondition(c.base.Condition, c.bindings(result, hasResult)); err != nil {
			return false, err
		}
	}
	c.conditionDone, c.conditionPassing = true, passing
	return passing, nil
}

// canPutToCache evaluates the unless expression against result.
func (c *operationContext) canPutToCache(result any) (bool, error) {
	var unless string
	switch op := c.op.(type) {
	case *Cacheable:
		unless = op.Unless
	case *CachePut:
		unless = op.Unless
	}
	if unless == "" {
		return true, nil
	}
	veto, err := c.evaluator.EvaluateCondition(unless, c.bindings(result, true))
	if err != nil {
		return false, err
	}
	return !veto, nil
}

// generateKey computes the key once per call.
func (c *operationContext) generateKey(result any, hasResult bool) (string, error) {
	if c.keyDone {
		return c.key, nil
	}
	var key string
	if c.base.Key != "" {
		v, err := c.evaluator.EvaluateKey(c.base.Key, c.bindings(result, hasResult))
		if err != nil {
			return "", err
		}
		key = KeyString(v)
	} else {
		var err error
		if key, err = c.meta.keyGenerator.Generate(c.inv.Target(), c.inv.Method(), c.inv.Arguments()...); err != nil {
			return "", err
		}
	}
	c.keyDone, c.key = true, key
	return key, nil
}

// operationContexts groups the contexts of one call by kind.
type operationContexts struct {
	cacheables []*operationContext
	puts       []*operationContext
	evicts     []*operationContext
}
