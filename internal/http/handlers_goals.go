package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"moneysaver/internal/core"
	applog "moneysaver/internal/log"
	"moneysaver/internal/services"
)

// goalView adds derived progress to a stored goal.
type goalView struct {
	core.Goal
	Progress decimal.Decimal `json:"progress"`
	Reached  bool            `json:"reached"`
}

func newGoalView(g core.Goal) goalView {
	return goalView{Goal: g, Progress: g.Progress(), Reached: g.Reached()}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.ledger.Goals(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, newGoalView(g))
	}
	NewJSONResponse().Body(views).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	goal, err := s.ledger.CreateGoal(ctx, p.Get("name"), p.Get("targetAmount"))
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Goal created via API", applog.FieldGoalID, goal.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(newGoalView(goal)).Write(w)
}

// handleGoalTransaction serves POST /api/goals/{id}/deposit and /withdraw.
func (s *Server) handleGoalTransaction(w http.ResponseWriter, r *http.Request) {
	action, err := services.ParseGoalAction(r.PathValue("action"))
	if err != nil {
		NotFoundError("unknown goal action").Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	goal, err := s.ledger.ApplyGoalTransaction(r.Context(), r.PathValue("id"), action, p.Get("amount"))
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newGoalView(goal)).Write(w)
}
