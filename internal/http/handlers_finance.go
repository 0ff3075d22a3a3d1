package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.finance.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleListCategoriesByKind(w http.ResponseWriter, r *http.Request) {
	cats, err := s.finance.ListCategoriesByKind(r.Context(), PathValue(r, "kind"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	OK(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	cat, err := req.toCategory()
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	created, err := s.finance.CreateCategory(r.Context(), cat)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	txn, err := s.finance.CreateTransaction(r.Context(), PathValue(r, "userId"), PathValue(r, "categoryId"), req.toInput())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)
	Created(txn).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.finance.ListTransactions(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	OK(txns).Write(w)
}

func (s *Server) handleListTransactionsByDate(w http.ResponseWriter, r *http.Request) {
	day, err := QueryDate(r, "date", true)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	txns, err := s.finance.ListTransactionsByDate(r.Context(), PathValue(r, "userId"), day)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	OK(txns).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.finance.DeleteTransaction(r.Context(), PathValue(r, "userId"), PathValue(r, "transactionId"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	OK(txn).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	goal, err := s.finance.CreateGoal(r.Context(), PathValue(r, "userId"), PathValue(r, "categoryId"), req.toInput())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.appMetrics.goalsCreated.Add(1)
	Created(goal).Write(w)
}

// handleListGoals returns each goal with its progress.
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.reports.Goals(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	OK(goals).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	goal, err := s.finance.UpdateGoal(r.Context(), PathValue(r, "goalId"), req.toUpdate())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	OK(goal).Write(w)
}

func (s *Server) handleSetGoalActive(active bool) http.HandlerFunc {
	op := log.OpDeactivate
	if active {
		op = log.OpActivate
	}
	return func(w http.ResponseWriter, r *http.Request) {
		goal, err := s.finance.SetGoalActive(r.Context(), PathValue(r, "goalId"), active)
		if err != nil {
			writeError(w, r, op, err)
			return
		}
		OK(goal).Write(w)
	}
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.finance.DeleteGoal(r.Context(), PathValue(r, "goalId"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	OK(goal).Write(w)
}

// handleGetBudget returns the budget together with its consumption.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.reports.Budget(r.Context(), PathValue(r, "userId"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	OK(b).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	b, err := s.finance.SetBudget(r.Context(), PathValue(r, "userId"), req.toInput())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	OK(b).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if req.Limit == nil {
		BadRequestError("amountLimit is required").Write(w)
		return
	}
	b, err := s.finance.UpdateBudgetLimit(r.Context(), PathValue(r, "budgetId"), *req.Limit)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	OK(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.finance.DeleteBudget(r.Context(), PathValue(r, "budgetId"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	OK(b).Write(w)
}
