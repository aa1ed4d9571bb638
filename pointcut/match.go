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

package pointcut

import "strings"

// SimpleMatch matches str against pattern where '*' stands for any sequence of
// characters, e.g. "get*", "*Order", "*Order*" and "find*By*".
func SimpleMatch(pattern, str string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	first := strings.IndexByte(pattern, '*')
	if first < 0 {
		return pattern == str
	}
	if first == 0 {
		if len(pattern) == 1 {
			return true
		}
		next := strings.IndexByte(pattern[1:], '*')
		if next < 0 {
			return strings.HasSuffix(str, pattern[1:])
		}
		part := pattern[1 : next+1]
		if part == "" {
			return SimpleMatch(pattern[1:], str)
		}
		i := strings.Index(str, part)
		for i >= 0 {
			if SimpleMatch(pattern[next+1:], str[i+len(part):]) {
				return true
			}
			j := strings.Index(str[i+1:], part)
			if j < 0 {
				break
			}
			i += j + 1
		}
		return false
	}
	return len(str) >= first && pattern[:first] == str[:first] &&
		SimpleMatch(pattern[first:], str[first:])
}

// SimpleMatchAny reports whether str matches any of patterns.
func SimpleMatchAny(patterns []string, str string) bool {
	for _, p := range patterns {
		if SimpleMatch(p, str) {
			return true
		}
	}
	return false
}
