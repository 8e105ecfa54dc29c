// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the engine counters on the default Prometheus
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChunksAllocated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redolith_memory_chunks_allocated",
		Help: "Chunks currently allocated by the memory pool.",
	})

	BytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_redo_bytes_read_total",
		Help: "Redo-log bytes confirmed by readers.",
	})

	RecordsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_records_parsed_total",
		Help: "Redo records fully assembled and analyzed.",
	})

	VectorsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_vectors_parsed_total",
		Help: "Change vectors decoded, including skipped opcodes.",
	})

	TransactionsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_transactions_committed_total",
		Help: "Transactions emitted on commit.",
	})

	TransactionsRolledBack = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_transactions_rolled_back_total",
		Help: "Transactions discarded on rollback.",
	})

	MessagesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redolith_messages_emitted_total",
		Help: "Messages written by the builder.",
	})
)
