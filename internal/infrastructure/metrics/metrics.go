package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Journal metrics
	TransactionsCreated  *prometheus.CounterVec
	TransactionsPosted   prometheus.Counter
	TransactionsReversed prometheus.Counter
	PostingDuration      prometheus.Histogram
	PostingErrors        *prometheus.CounterVec
	TemplatesSkipped     *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter
	ChartsSeeded    prometheus.Counter

	// Balance metrics
	BalanceQueries     prometheus.Counter
	BalanceCacheHits   prometheus.Counter
	BalanceCacheMisses prometheus.Counter

	// Statement import metrics
	StatementRowsImported  prometheus.Counter
	StatementRowsDuplicate prometheus.Counter
	StatementRowsErrored   prometheus.Counter
	ImportDuration         prometheus.Histogram

	// Reconciliation metrics
	Matches          *prometheus.CounterVec
	MatchRacesLost   prometheus.Counter
	UnmatchedEntries *prometheus.GaugeVec
	MonthsClosed     prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
	HTTPPanics   *prometheus.CounterVec

	// Database metrics
	DBRetries prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		TransactionsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_transactions_created_total",
				Help: "Total number of journal transactions created by reference type",
			},
			[]string{"reference_type"},
		),
		TransactionsPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_transactions_posted_total",
			Help: "Total number of journal transactions posted",
		}),
		TransactionsReversed: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_transactions_reversed_total",
			Help: "Total number of journal transactions reversed",
		}),
		PostingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookkeeper_posting_duration_seconds",
			Help:    "Duration of journal posting units of work",
			Buckets: prometheus.DefBuckets,
		}),
		PostingErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_posting_errors_total",
				Help: "Total number of rejected postings by error kind",
			},
			[]string{"kind"},
		),
		TemplatesSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_templates_skipped_total",
				Help: "Optional posting templates skipped because the chart lacks their accounts",
			},
			[]string{"template"},
		),

		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		ChartsSeeded: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_charts_seeded_total",
			Help: "Total number of chart of accounts initializations",
		}),

		BalanceQueries: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_balance_queries_total",
			Help: "Total number of balance computations",
		}),
		BalanceCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_balance_cache_hits_total",
			Help: "Balance lookups served from cache",
		}),
		BalanceCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_balance_cache_misses_total",
			Help: "Balance lookups computed from entries",
		}),

		StatementRowsImported: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_statement_rows_imported_total",
			Help: "Bank statement rows stored",
		}),
		StatementRowsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_statement_rows_duplicate_total",
			Help: "Bank statement rows skipped as duplicates",
		}),
		StatementRowsErrored: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_statement_rows_errored_total",
			Help: "Bank statement rows rejected by the parser",
		}),
		ImportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookkeeper_statement_import_duration_seconds",
			Help:    "Duration of statement imports",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		Matches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_matches_total",
				Help: "Statement lines matched by method",
			},
			[]string{"method"},
		),
		MatchRacesLost: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_match_races_lost_total",
			Help: "Auto-match pairs skipped because a concurrent matcher got there first",
		}),
		UnmatchedEntries: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookkeeper_unmatched_entries",
				Help: "Entries left unmatched after the last auto-match pass",
			},
			[]string{"side"},
		),
		MonthsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_months_closed_total",
			Help: "Monthly bank reconciliations closed",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookkeeper_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "bookkeeper_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		HTTPPanics: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_http_panics_total",
				Help: "Handler panics recovered, by route pattern",
			},
			[]string{"path"},
		),

		DBRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "bookkeeper_db_retries_total",
			Help: "Units of work retried after deadlock or serialization failure",
		}),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"client"},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookkeeper_events_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
	}
}
