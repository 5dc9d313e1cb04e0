package http

import (
	"net/http"

	"moneysaver/internal/core"
	applog "moneysaver/internal/log"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Ready(r.Context()); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
		ServiceUnavailableError("not ready").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// handleRefresh runs a refresh cycle. A cycle whose writes failed still
// answers 200 with stale set, so the client can render what was computed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	now, err := ParseRefreshTime(r.URL.Query(), s.opts.Clock().In(s.opts.Location))
	if err != nil {
		s.fail(w, r, applog.OpValidate, err)
		return
	}

	res, err := s.refresher.Refresh(ctx, now)
	if err != nil && res == nil {
		s.fail(w, r, applog.OpRefresh, err)
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "Refresh persisted partially, serving stale result", "error", err)
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.Transactions(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	draft := core.TransactionDraft{
		Amount:    p.Get("amount"),
		Category:  p.Get("category"),
		Type:      core.TransactionType(p.Get("type")),
		Note:      p.Get("note"),
		Recurring: p.Bool("recurring"),
	}

	tx, err := s.ledger.CreateTransaction(ctx, draft)
	if err != nil && tx.ID == "" {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	if err != nil {
		// The transaction is stored; only its recurring rule failed.
		applog.FromContext(ctx).WarnContext(ctx, "Transaction saved without recurring rule", "error", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogTransactionCreated(ctx, tx.ID, string(tx.Type), tx.Category, tx.Amount.String())
	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.ledger.RecurringRules(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(nonNil(rules)).Write(w)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.opts.Clock().In(s.opts.Location))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}

	overview, err := s.ledger.MonthOverview(r.Context(), params.Year, params.Month, s.opts.Location)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if overview.ByCategory == nil {
		overview.ByCategory = []core.CategoryAmount{}
	}
	NewJSONResponse().Body(overview).Write(w)
}

// fail writes the mapped error response. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, applog.ComponentLedger, op, applog.NewFields().WithClientIP(s.detector.ExtractClientIP(r)))
	}
	resp.Write(w)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
