package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	adaptershttp "github.com/iho/bookkeeper/internal/adapter/http"
	"github.com/iho/bookkeeper/internal/adapter/http/handler"
	"github.com/iho/bookkeeper/internal/adapter/http/middleware"
	"github.com/iho/bookkeeper/internal/adapter/importer"
	"github.com/iho/bookkeeper/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/bookkeeper/internal/adapter/repository/redis"
	"github.com/iho/bookkeeper/internal/domain"
	"github.com/iho/bookkeeper/internal/usecase"
)

// App is the full HTTP stack backed by the test database and an in-process redis.
type App struct {
	Router      http.Handler
	Redis       *miniredis.Miniredis
	Journal     *usecase.JournalUseCase
	Reconciling *usecase.ReconciliationUseCase
	t           *testing.T
}

// NewApp wires every use case the way the server does.
func NewApp(t *testing.T, db *TestDB) *App {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pool := db.Pool
	txManager := postgres.NewTxManager(pool, pgx.ReadCommitted)
	accountRepo := postgres.NewAccountRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	statementRepo := postgres.NewStatementRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier()
	cache := redisrepo.NewBalanceCache(client, time.Minute)

	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, entryRepo, outboxRepo, auditRepo, idGen).WithRetrier(retrier)
	balanceUC := usecase.NewBalanceUseCase(accountRepo, entryRepo).WithCache(cache)
	journalUC := usecase.NewJournalUseCase(txManager, accountRepo, transactionRepo, entryRepo, outboxRepo, auditRepo, idGen).
		WithRetrier(retrier).
		WithCache(cache)
	statementUC := usecase.NewStatementUseCase(txManager, accountRepo, statementRepo, postgres.NewImportBatchRepository(pool),
		importer.DefaultRegistry(), outboxRepo, auditRepo, idGen).WithRetrier(retrier)
	reconUC := usecase.NewReconciliationUseCase(txManager, accountRepo, transactionRepo, entryRepo, statementRepo, journalUC,
		outboxRepo, auditRepo, idGen).WithRetrier(retrier)
	monthlyUC := usecase.NewMonthlyCloseUseCase(txManager, accountRepo, postgres.NewMonthlyReconciliationRepository(pool),
		balanceUC, outboxRepo, auditRepo, idGen).WithRetrier(retrier)
	ledgerUC := usecase.NewLedgerUseCase(postgres.NewLedgerRepository(pool)).WithAudit(auditRepo)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		BalanceHandler:        handler.NewBalanceHandler(balanceUC),
		JournalHandler:        handler.NewJournalHandler(journalUC),
		StatementHandler:      handler.NewStatementHandler(statementUC, 0),
		ReconciliationHandler: handler.NewReconciliationHandler(reconUC, domain.DefaultMatchTolerance()),
		MonthlyHandler:        handler.NewMonthlyHandler(monthlyUC),
		LedgerHandler:         handler.NewLedgerHandler(ledgerUC),
		HealthHandler:         handler.NewHealthHandler(map[string]handler.Checker{"postgres": pool.Ping}),
		Logger:                zerolog.Nop(),
		IdempotencyStore:      redisrepo.NewIdempotencyStore(client),
	})

	return &App{Router: router, Redis: mr, Journal: journalUC, Reconciling: reconUC, t: t}
}

// Response is a recorded API response.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Decode unmarshals the body into v.
func (r *Response) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("failed to decode response %s: %v", r.Body, err)
	}
}

// Do sends a request as an admin of companyID. body may be nil, a []byte or any JSON value.
func (a *App) Do(companyID, method, path string, body any, headers ...string) *Response {
	a.t.Helper()

	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
		contentType = "text/csv"
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(middleware.CompanyIDHeader, companyID)
	req.Header.Set(middleware.RoleHeader, string(domain.RoleAdmin))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return &Response{Status: rec.Code, Body: rec.Body.Bytes(), Header: rec.Header()}
}

// MustDo is Do that fails the test unless the response status is want.
func (a *App) MustDo(want int, companyID, method, path string, body any, out any) *Response {
	a.t.Helper()
	resp := a.Do(companyID, method, path, body)
	if resp.Status != want {
		a.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, resp.Status, resp.Body)
	}
	if out != nil {
		resp.Decode(a.t, out)
	}
	return resp
}
