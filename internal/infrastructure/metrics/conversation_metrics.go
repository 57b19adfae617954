package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversation metrics
var (
	// Conversation operation counters
	ConversationOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "conversation_operations_total",
			Help:      "Total conversation state operations",
		},
		[]string{"operation", "status"},
	)

	// Conversation turn histogram, observed when a turn completes
	ConversationTurns = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "conversation_turns",
			Help:      "Turn count of conversations at turn completion",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	// Context optimizations counter
	ContextOptimizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "context_optimizations_total",
			Help:      "Total context optimization runs",
		},
		[]string{"outcome"},
	)

	// Expired conversations deleted counter
	ConversationsExpiredDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "response_orchestrator",
			Name:      "conversations_expired_deleted_total",
			Help:      "Total number of expired conversations deleted",
		},
	)
)

// RecordConversationOperation records a conversation state operation
func RecordConversationOperation(operation, status string) {
	ConversationOperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveConversationTurns records the turn count after a completed turn
func ObserveConversationTurns(turns int) {
	ConversationTurns.Observe(float64(turns))
}

// RecordContextOptimization records an optimization run outcome
func RecordContextOptimization(outcome string) {
	ContextOptimizationsTotal.WithLabelValues(outcome).Inc()
}

// RecordConversationsExpiredDeleted records expired conversations deletion
func RecordConversationsExpiredDeleted(count int64) {
	ConversationsExpiredDeleted.Add(float64(count))
}
