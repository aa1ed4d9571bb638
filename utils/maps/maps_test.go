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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type User struct {
	Username string
	Age      int
	Address  Address
	Hobbies  []string
}

type Address struct {
	Detail string
}

func TestMap2Struct(t *testing.T) {
	m := make(map[string]interface{})
	m["userName"] = "lala"
	m["Age"] = float64(5)
	m["Address"] = Address{"test"}
	m["Hobbies"] = []string{"c"}
	var user User
	user.Hobbies = []string{"a", "b"}
	_ = Map2Struct(m, &user)
	assert.Equal(t, "lala", user.Username)
	assert.Equal(t, 5, user.Age)
	assert.Equal(t, "test", user.Address.Detail)
	assert.Equal(t, 1, len(user.Hobbies))

	type Config struct {
		Timeout  time.Duration
		ReadOnly bool
		Names    []string
	}
	var cfg Config
	err := Map2Struct(map[string]interface{}{
		"Timeout":  "5s",
		"ReadOnly": "true",
		"Names":    "a,b",
	}, &cfg)
	assert.Nil(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, []string{"a", "b"}, cfg.Names)

	var cfgInvalid Config
	err = Map2Struct(map[string]interface{}{"Timeout": "5invalid"}, &cfgInvalid)
	assert.NotNil(t, err)

	var userNonPointer User
	err = Map2Struct(m, userNonPointer)
	assert.NotNil(t, err)

	var userNilInput User
	err = Map2Struct(nil, &userNilInput)
	assert.Nil(t, err)
	assert.Equal(t, "", userNilInput.Username)

	var userNotMapInput User
	err = Map2Struct("not a map", &userNotMapInput)
	assert.NotNil(t, err)
}
