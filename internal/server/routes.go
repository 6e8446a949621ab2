package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/service"
)

// allowOrigin accepts only configured origins since requests carry credentials.
func (s *Server) allowOrigin(_ *http.Request, origin string) bool {
	return slices.Contains(s.corsOrigins, origin)
}

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  s.allowOrigin,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.HelloWorldHandler)

	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/api", func(r chi.Router) {
			r.Route("/spaces/{slug}", func(r chi.Router) {
				r.Get("/", s.getSpaceHandler)
				r.Get("/lists/{listId}", s.getListPageHandler)
				r.Get("/tasks", s.getSpaceTasksHandler)
			})
			r.Post("/tasks", s.createTaskHandler)
			r.Get("/lists/{listId}/todos", s.getListTodosHandler)
			r.Route("/todos", func(r chi.Router) {
				r.Post("/", s.createTodoHandler)
				r.Patch("/{id}", s.updateTodoHandler)
				r.Delete("/{id}", s.deleteTodoHandler)
			})
		})

		if s.web != nil {
			s.web.Mount(r)
		}
	})

	return r
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Hello World from Space Todo!"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) getSpaceHandler(w http.ResponseWriter, r *http.Request) {
	space, err := s.spaceService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve space")
		return
	}
	respondWithJSON(w, http.StatusOK, space)
}

func (s *Server) getListPageHandler(w http.ResponseWriter, r *http.Request) {
	props, err := s.spaceService.ResolveListPage(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "listId"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve list")
		return
	}
	respondWithJSON(w, http.StatusOK, props)
}

func (s *Server) getSpaceTasksHandler(w http.ResponseWriter, r *http.Request) {
	space, err := s.spaceService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve space")
		return
	}
	tasks, err := s.taskService.FindBySpace(r.Context(), space.ID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := s.taskService.Create(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create task")
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

func (s *Server) getListTodosHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := idParam(w, r, "listId", "list")
	if !ok {
		return
	}

	todos, err := s.todoService.FindByList(r.Context(), listID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve todos")
		return
	}
	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := s.todoService.Create(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create todo")
		return
	}
	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "todo")
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := s.todoService.Update(r.Context(), id, req)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update todo")
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id", "todo")
	if !ok {
		return
	}

	if err := s.todoService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// idParam reads a UUID path parameter.
func idParam(w http.ResponseWriter, r *http.Request, name, entity string) (string, bool) {
	id := chi.URLParam(r, name)
	if err := uuid.Validate(id); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID provided", entity))
		return "", false
	}
	return id, true
}

// decodeJSON decodes a strict JSON body into dst, answering 400 with a
// precise message when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &syntaxError) {
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		msg := "Request body contains badly-formed JSON"
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.As(err, &unmarshalTypeError) {
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if strings.HasPrefix(err.Error(), "json: unknown field ") {
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.EOF) {
		msg := "Request body must not be empty"
		respondWithError(w, http.StatusBadRequest, msg)
	} else {
		logger.Error(r.Context(), "Error decoding request body", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return false
}

// respondWithServiceError maps domain errors to status codes. Anything
// unrecognised is logged and reported as msg.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		logger.Error(r.Context(), msg, "error", err)
		respondWithError(w, http.StatusInternalServerError, msg)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error(context.Background(), "Error marshaling JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
