// Copyright 2026 The NeuraTable Authors.
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

package runner

import "github.com/prometheus/client_golang/prometheus"

var (
	tileInferenceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neuratable",
			Subsystem: "runner",
			Name:      "tile_inference_ops_total",
			Help:      "The total number of tiles run through a model.",
		},
		[]string{"backend"},
	)
	backendFallbackOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neuratable",
			Subsystem: "runner",
			Name:      "backend_fallback_ops_total",
			Help:      "The total number of GPU-to-CPU backend fallbacks.",
		},
		[]string{"from", "to"},
	)
)

func init() {
	prometheus.MustRegister(tileInferenceOps)
	prometheus.MustRegister(backendFallbackOps)
}
