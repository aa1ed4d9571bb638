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

package tx

import (
	"errors"
	"reflect"

	"github.com/rulego/weave/api/types"
)

// RollbackRule matches errors and tells whether a match rolls back.
type RollbackRule struct {
	// Name describes the rule, e.g. "-ErrConflict".
	Name string
	// Match is applied to each error of the wrap chain on its own, without unwrapping.
	Match func(err error) bool
	// Rollback is the decision when the rule matches.
	Rollback bool
}

// RollbackFor rolls back when target is found in the wrap chain.
func RollbackFor(target error) RollbackRule {
	return RollbackRule{Name: "-" + target.Error(), Match: sameError(target), Rollback: true}
}

// NoRollbackFor commits when target is found in the wrap chain.
func NoRollbackFor(target error) RollbackRule {
	return RollbackRule{Name: "+" + target.Error(), Match: sameError(target), Rollback: false}
}

// RollbackForType rolls back when an error of type T is found in the wrap chain.
func RollbackForType[T error]() RollbackRule {
	return RollbackRule{Name: "-" + types.TypeName(types.TypeOf[T]()), Match: isType[T], Rollback: true}
}

// NoRollbackForType commits when an error of type T is found in the wrap chain.
func NoRollbackForType[T error]() RollbackRule {
	return RollbackRule{Name: "+" + types.TypeName(types.TypeOf[T]()), Match: isType[T], Rollback: false}
}

// rollbackForTypeName matches errors whose dynamic type is called name, either
// the short name ("ConflictError") or the qualified one ("*orders.ConflictError").
func rollbackForTypeName(name string, rollback bool) RollbackRule {
	prefix := "+"
	if rollback {
		prefix = "-"
	}
	return RollbackRule{
		Name: prefix + name,
		Match: func(err error) bool {
			t := reflect.TypeOf(err)
			return types.ShortName(t) == name || types.TypeName(t) == name
		},
		Rollback: rollback,
	}
}

// RuleBased builds a rollback predicate from rules. The rule matching at the
// shallowest depth of the error's wrap chain wins, the first rule on a tie.
// Without a match fallback decides, a nil fallback rolls back.
//
// RuleBased 基于规则的回滚判断，匹配深度最浅的规则生效。
func RuleBased(fallback func(err error) bool, rules ...RollbackRule) func(err error) bool {
	return func(err error) bool {
		if rule, ok := winningRule(err, rules); ok {
			return rule.Rollback
		}
		if fallback == nil {
			return true
		}
		return fallback(err)
	}
}

// RuntimeOnly is a fallback that rolls back on panics only, the equivalent of
// rolling back on unchecked failures and committing on business errors.
func RuntimeOnly(err error) bool {
	var pe *types.PanicError
	return errors.As(err, &pe)
}

func winningRule(err error, rules []RollbackRule) (RollbackRule, bool) {
	bestDepth, bestRule := -1, -1
	walkChain(err, 0, func(e error, depth int) bool {
		if bestRule >= 0 && depth > bestDepth {
			return false
		}
		for i, rule := range rules {
			if rule.Match == nil || !rule.Match(e) {
				continue
			}
			if bestRule < 0 || depth < bestDepth || i < bestRule {
				bestDepth, bestRule = depth, i
			}
			return false
		}
		return true
	})
	if bestRule < 0 {
		return RollbackRule{}, false
	}
	return rules[bestRule], true
}

// walkChain visits err and the errors it wraps, depth first. visit returns
// false to stop descending below e.
func walkChain(err error, depth int, visit func(e error, depth int) bool) {
	if err == nil || !visit(err, depth) {
		return
	}
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		walkChain(x.Unwrap(), depth+1, visit)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			walkChain(e, depth+1, visit)
		}
	}
}

func sameError(target error) func(error) bool {
	comparable := reflect.TypeOf(target).Comparable()
	return func(err error) bool {
		if comparable && err == target {
			return true
		}
		if x, ok := err.(interface{ Is(error) bool }); ok {
			return x.Is(target)
		}
		return false
	}
}

func isType[T error](err error) bool {
	_, ok := err.(T)
	return ok
}
