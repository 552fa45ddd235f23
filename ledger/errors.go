/*
 * Copyright 2019 The QuorumNet Authors.
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

package ledger

import (
	"errors"
)

var (
	// ErrConnClosed indicates that the facade's backend connection pool has
	// been torn down by DropStorage or Close. Construction of query
	// services, temporary views and mutable storages fails with this error
	// instead of blocking.
	ErrConnClosed = errors.New("connection was closed")

	// ErrTerminated indicates a commit or discard attempt on a mutable
	// storage that already reached a terminal state.
	ErrTerminated = errors.New("mutable storage already committed or discarded")

	// ErrTemporaryClosed indicates statement execution on an already
	// discarded temporary world state view.
	ErrTemporaryClosed = errors.New("temporary wsv already discarded")

	// ErrQueryClosed indicates a read through an already closed query
	// service.
	ErrQueryClosed = errors.New("query service already closed")
)
