/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "github.com/google/uuid"

// IDGenerator issues instance ids. The model checks uniqueness itself, so a
// generator only has to be unlikely to repeat.
type IDGenerator interface {
	NewID(typeID string) string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func(typeID string) string

func (f IDFunc) NewID(typeID string) string { return f(typeID) }

// UUIDGenerator yields "<typeId>-<uuid>".
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(typeID string) string { return typeID + "-" + uuid.NewString() }
