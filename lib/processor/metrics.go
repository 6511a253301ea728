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

package processor

import "github.com/prometheus/client_golang/prometheus"

var (
	tilesProcessedOps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "neuratable",
			Subsystem: "processor",
			Name:      "tiles_processed_total",
			Help:      "The total number of tiles processed.",
		},
	)
	imagesProcessedOps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "neuratable",
			Subsystem: "processor",
			Name:      "images_processed_total",
			Help:      "The total number of images processed.",
		},
	)
	imageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "neuratable",
			Subsystem: "processor",
			Name:      "image_duration_seconds",
			Help:      "Wall-clock time spent processing one image.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(tilesProcessedOps)
	prometheus.MustRegister(imagesProcessedOps)
	prometheus.MustRegister(imageDuration)
}
