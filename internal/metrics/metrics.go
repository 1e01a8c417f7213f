// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouterFramesTotal counts frames received per interface.
	RouterFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netkit_router_frames_total",
			Help: "Total number of frames received",
		},
		[]string{"interface"},
	)

	// RouterForwardedTotal counts IP packets forwarded per egress interface.
	RouterForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netkit_router_forwarded_total",
			Help: "Total number of IP packets forwarded",
		},
		[]string{"interface"},
	)

	// RouterDropsTotal counts dropped frames by reason.
	RouterDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netkit_router_drops_total",
			Help: "Total number of dropped frames",
		},
		[]string{"reason"},
	)

	// RouterPendingFrames tracks frames queued for ARP resolution.
	RouterPendingFrames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netkit_router_arp_pending_frames",
			Help: "Number of frames queued awaiting ARP resolution",
		},
	)

	// BrokerDatagramsTotal counts UDP datagrams received by the broker.
	BrokerDatagramsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netkit_broker_datagrams_total",
			Help: "Total number of UDP datagrams received",
		},
	)

	// BrokerResponsesTotal counts response frames fanned out to subscribers.
	BrokerResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netkit_broker_responses_total",
			Help: "Total number of response frames sent to subscribers",
		},
	)

	// BrokerSubscribers tracks currently connected subscribers.
	BrokerSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netkit_broker_subscribers",
			Help: "Number of currently connected subscribers",
		},
	)

	// HTTPRequestsTotal counts HTTP client requests by method and outcome.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netkit_http_client_requests_total",
			Help: "Total number of HTTP client requests",
		},
		[]string{"method", "outcome"},
	)

	// HTTPRetriesTotal counts HTTP client retry attempts.
	HTTPRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netkit_http_client_retries_total",
			Help: "Total number of HTTP client retries",
		},
	)
)
