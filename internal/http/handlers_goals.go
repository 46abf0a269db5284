package http

import (
	"net/http"

	"budgetly/internal/core"
)

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount int64  `json:"target_amount"`
	Deadline     string `json:"deadline"`
}

func (req goalRequest) input() core.GoalInput {
	return core.GoalInput{Name: req.Name, TargetAmount: req.TargetAmount, Deadline: req.Deadline}
}

type categoryRequest struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

func (req categoryRequest) input() core.CategoryInput {
	return core.CategoryInput{Name: req.Name, Priority: req.Priority}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.deps.Goals.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newGoalViews(goals)).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.deps.Goals.Create(r.Context(), currentUser(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newGoalView(goal)).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.deps.Goals.Update(r.Context(), currentUser(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newGoalView(goal)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Goals.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newCategoryViews(cats)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.deps.Categories.Create(r.Context(), currentUser(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newCategoryView(cat)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := s.deps.Categories.Update(r.Context(), currentUser(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newCategoryView(cat)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
