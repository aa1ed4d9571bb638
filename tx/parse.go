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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rulego/weave/utils/maps"
)

const (
	propagationPrefix = "PROPAGATION_"
	isolationPrefix   = "ISOLATION_"
	timeoutPrefix     = "timeout_"
	readOnlyMarker    = "readOnly"
	qualifierPrefix   = "@"
	rollbackPrefix    = "-"
	commitPrefix      = "+"
)

// ParseAttribute parses the comma separated textual form of an attribute:
//
//	PROPAGATION_REQUIRES_NEW,ISOLATION_SERIALIZABLE,timeout_5,readOnly,@orders,-ErrConflict,+ErrNotFound
//
// timeout_ takes seconds or a duration such as 500ms. A name after - or + is
// looked up in errs and matched with errors.Is semantics; unknown names match
// the dynamic type name of the errors in the chain.
//
// ParseAttribute 解析字符串形式的事务属性。
func ParseAttribute(s string, errs map[string]error) (*Attribute, error) {
	attr := DefaultAttribute()
	var rules []RollbackRule
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		switch {
		case token == "":
		case strings.HasPrefix(token, propagationPrefix):
			p, err := ParsePropagation(token)
			if err != nil {
				return nil, err
			}
			attr.Propagation = p
		case strings.HasPrefix(token, isolationPrefix):
			i, err := ParseIsolation(token)
			if err != nil {
				return nil, err
			}
			attr.Isolation = i
		case strings.HasPrefix(token, timeoutPrefix):
			d, err := parseTimeout(token[len(timeoutPrefix):])
			if err != nil {
				return nil, err
			}
			attr.Timeout = d
		case token == readOnlyMarker:
			attr.ReadOnly = true
		case strings.HasPrefix(token, qualifierPrefix):
			attr.Qualifier = token[len(qualifierPrefix):]
		case strings.HasPrefix(token, rollbackPrefix):
			rules = append(rules, ruleFor(token[len(rollbackPrefix):], errs, true))
		case strings.HasPrefix(token, commitPrefix):
			rules = append(rules, ruleFor(token[len(commitPrefix):], errs, false))
		default:
			return nil, fmt.Errorf("%w: unknown token %q", ErrInvalidAttribute, token)
		}
	}
	if len(rules) > 0 {
		attr.RollbackOn = RuleBased(nil, rules...)
	}
	return attr, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad timeout %q", ErrInvalidAttribute, s)
	}
	return d, nil
}

func ruleFor(name string, errs map[string]error, rollback bool) RollbackRule {
	if target, ok := errs[name]; ok {
		rule := RollbackFor(target)
		if !rollback {
			rule = NoRollbackFor(target)
		}
		return rule
	}
	return rollbackForTypeName(name, rollback)
}

type attributeConfig struct {
	Name          string        `mapstructure:"name"`
	Propagation   string        `mapstructure:"propagation"`
	Isolation     string        `mapstructure:"isolation"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ReadOnly      bool          `mapstructure:"readOnly"`
	Qualifier     string        `mapstructure:"qualifier"`
	RollbackFor   []string      `mapstructure:"rollbackFor"`
	NoRollbackFor []string      `mapstructure:"noRollbackFor"`
}

// DecodeAttribute decodes the map form of an attribute, for example
//
//	{"propagation": "REQUIRES_NEW", "timeout": "5s", "rollbackFor": "ErrConflict"}
//
// Error names are resolved like in ParseAttribute; rollbackFor rules come
// before noRollbackFor rules.
func DecodeAttribute(m map[string]interface{}, errs map[string]error) (*Attribute, error) {
	var cfg attributeConfig
	if err := maps.Map2Struct(m, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttribute, err)
	}
	attr := DefaultAttribute()
	attr.Name = cfg.Name
	attr.Timeout = cfg.Timeout
	attr.ReadOnly = cfg.ReadOnly
	attr.Qualifier = cfg.Qualifier
	if cfg.Propagation != "" {
		p, err := ParsePropagation(cfg.Propagation)
		if err != nil {
			return nil, err
		}
		attr.Propagation = p
	}
	if cfg.Isolation != "" {
		i, err := ParseIsolation(cfg.Isolation)
		if err != nil {
			return nil, err
		}
		attr.Isolation = i
	}
	var rules []RollbackRule
	for _, name := range cfg.RollbackFor {
		rules = append(rules, ruleFor(strings.TrimSpace(name), errs, true))
	}
	for _, name := range cfg.NoRollbackFor {
		rules = append(rules, ruleFor(strings.TrimSpace(name), errs, false))
	}
	if len(rules) > 0 {
		attr.RollbackOn = RuleBased(nil, rules...)
	}
	return attr, nil
}
