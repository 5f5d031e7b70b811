package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sceneCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "scene_cache_hits_total",
		Help:      "Scene requests served from cache or store.",
	})
	sceneCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "scene_cache_misses_total",
		Help:      "Scene requests that required generation.",
	})
	scenesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "scenes_generated_total",
		Help:      "Generated scenes by classification and draft source.",
	}, []string{"class", "source"})
	imageFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "image_placeholder_fallbacks_total",
		Help:      "Scenes persisted with the placeholder illustration.",
	})
	debitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "credit_debit_failures_total",
		Help:      "Post-generation credit debits that failed.",
	})
	prefetchSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "prefetch_tasks_submitted_total",
		Help:      "Speculative scene generation tasks submitted.",
	})
	prefetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "adventure",
		Name:      "prefetch_failures_total",
		Help:      "Prefetch branches that could not be submitted or failed.",
	})
)
