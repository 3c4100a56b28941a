// Copyright (c) 2026 Ammar Ahmad
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

// Package metrics exposes Prometheus counters for the processing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_received_total",
			Help: "Total inbound email notifications attempted",
		},
	)

	EmailsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_processed_total",
			Help: "Total emails fully processed",
		},
	)

	EmailsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Total emails that failed a pipeline stage",
		},
	)

	ExtractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_failures_total",
			Help: "Total extraction service failures",
		},
	)

	ActionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "actions_created_total",
			Help: "Total extracted actions inserted",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		EmailsReceived,
		EmailsProcessed,
		EmailsFailed,
		ExtractionFailures,
		ActionsCreated,
	)
}
