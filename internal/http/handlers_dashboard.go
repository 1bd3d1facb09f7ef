package http

import (
	"net/http"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	cacheKey := owner + ":summary"
	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sum, err := s.reports.Summary(r.Context(), owner)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := toSummaryResponse(sum)
	s.summaryCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIncomeExpense(w http.ResponseWriter, r *http.Request) {
	points, err := s.reports.IncomeExpense(r.Context(), ownerID(r), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyPointResponses(points))
}

func (s *Server) handleCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.CategoryBreakdown(r.Context(), ownerID(r), r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryExpenseResponses(rows))
}

func (s *Server) handleYearlyProfit(w http.ResponseWriter, r *http.Request) {
	points, err := s.reports.YearlyProfit(r.Context(), ownerID(r), r.URL.Query().Get("months"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfitPointResponses(points))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.reports.Goal(r.Context(), ownerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goalResponse{Goal: goal})
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	var req goalResponse
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.reports.SetGoal(r.Context(), owner, req.Goal); err != nil {
		respondServiceError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, goalResponse{Goal: req.Goal})
}
