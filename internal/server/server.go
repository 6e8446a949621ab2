package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Tomlord1122/space-todo/internal/config"
	"github.com/Tomlord1122/space-todo/internal/database"
	"github.com/Tomlord1122/space-todo/internal/service"
	"github.com/Tomlord1122/space-todo/internal/web"
)

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	DB     database.Service
	Spaces service.SpaceService
	Tasks  service.TaskService
	Todos  service.TodoService
	// Web serves the list page. Optional.
	Web *web.Handler
}

type Server struct {
	port        int
	jwtSecret   string
	corsOrigins []string

	db           database.Service
	spaceService service.SpaceService
	taskService  service.TaskService
	todoService  service.TodoService
	web          *web.Handler
}

func NewServer(cfg *config.Config, deps Deps) *http.Server {
	appServer := &Server{
		port:         cfg.HTTPPort,
		jwtSecret:    cfg.JWTSecret,
		corsOrigins:  cfg.CORSOrigins,
		db:           deps.DB,
		spaceService: deps.Spaces,
		taskService:  deps.Tasks,
		todoService:  deps.Todos,
		web:          deps.Web,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
