package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "manibot",
			Name:      "booking_created_total",
			Help:      "Count of bookings committed to the ledger.",
		},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "manibot",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by users.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "manibot",
			Name:      "slot_conflict_total",
			Help:      "Count of booking attempts rejected because the slot was taken.",
		},
	)

	notifyFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manibot",
			Name:      "notify_failed_total",
			Help:      "Count of admin notifications that failed after retries.",
		},
		[]string{"event"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, slotConflicts, notifyFailed)
	})
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncNotifyFailed(event string) {
	notifyFailed.WithLabelValues(event).Inc()
}
