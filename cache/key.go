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
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/rulego/weave/api/types"
)

// KeySeparator separates the segments of generated keys.
const KeySeparator = "::"

// KeyGenerator builds the key of a call whose operation has no key expression.
//
// KeyGenerator 缓存key生成器。
type KeyGenerator interface {
	Generate(target any, m types.Method, args ...any) (string, error)
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func(target any, m types.Method, args ...any) (string, error)

// Generate implements KeyGenerator.
func (f KeyGeneratorFunc) Generate(target any, m types.Method, args ...any) (string, error) {
	return f(target, m, args...)
}

// DefaultKeyGenerator joins the target type, the method name and the
// serialized arguments, e.g. "*orders.Service.Find::42".
type DefaultKeyGenerator struct{}

// Generate implements KeyGenerator.
func (DefaultKeyGenerator) Generate(target any, m types.Method, args ...any) (string, error) {
	prefix := m.Name
	if target != nil {
		prefix = types.ShortName(reflect.TypeOf(target)) + "." + m.Name
	}
	return SerializeKey(prefix, args...), nil
}

// SerializeKey builds a key from prefix and parts. Equal values always give
// equal keys, map entries are serialized in sorted key order. Strings are
// quoted so a separator inside an argument cannot shift argument boundaries.
func SerializeKey(prefix string, parts ...any) string {
	if len(parts) == 0 {
		return prefix
	}
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, prefix)
	for _, p := range parts {
		segments = append(segments, serializeValue(p))
	}
	return strings.Join(segments, KeySeparator)
}

// KeyString turns the value of a key expression into a cache key.
func KeyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return serializeValue(v)
}

func serializeValue(v any) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%p", rv.Kind(), v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		elem := rv.Elem()
		if _, ok := marshalText(elem.Interface()); !ok && elem.Kind() == reflect.Struct {
			// pointer receiver marshalers, named after the element type
			if text, ok := marshalText(v); ok {
				return types.TypeName(elem.Type()) + ":" + strconv.Quote(text)
			}
		}
		return serializeValue(elem.Interface())
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return fmt.Sprintf("slice[%d]:{%s}", rv.Len(), serializeElems(rv))
	case reflect.Array:
		return fmt.Sprintf("array[%d]:{%s}", rv.Len(), serializeElems(rv))
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return serializeMap(rv)
	case reflect.Struct:
		if text, ok := marshalText(v); ok {
			return types.TypeName(rv.Type()) + ":" + strconv.Quote(text)
		}
		return serializeStruct(rv)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", v)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%#v", v)
}

// marshalText renders values that describe themselves, e.g. time.Time.
func marshalText(v any) (string, bool) {
	switch m := v.(type) {
	case encoding.TextMarshaler:
		b, err := m.MarshalText()
		return string(b), err == nil
	case json.Marshaler:
		b, err := m.MarshalJSON()
		return string(b), err == nil
	case fmt.Stringer:
		return m.String(), true
	}
	return "", false
}

func serializeElems(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = serializeValue(rv.Index(i).Interface())
	}
	return strings.Join(parts, ",")
}

func serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, serializeValue(iter.Key().Interface())+"="+serializeValue(iter.Value().Interface()))
	}
	// 排序保证 key 稳定
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func serializeStruct(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+serializeValue(rv.Field(i).Interface()))
	}
	if len(parts) < rt.NumField() {
		// unexported state still tells calls apart
		return fmt.Sprintf("%s:%+v", types.TypeName(rt), rv.Interface())
	}
	return fmt.Sprintf("%s:{%s}", types.TypeName(rt), strings.Join(parts, ","))
}
