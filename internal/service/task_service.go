package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Tomlord1122/space-todo/internal/cache"
	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/events"
	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/policy"
	"github.com/Tomlord1122/space-todo/internal/repository"
)

// TaskService manages the reusable tasks of a space.
type TaskService interface {
	// FindBySpace returns the space's tasks, newest first.
	FindBySpace(ctx context.Context, spaceID string) ([]TaskResponse, error)

	// Create adds a task to a space, owned by the space owner.
	Create(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error)
}

type taskService struct {
	tasks     repository.TaskRepository
	spaces    repository.SpaceRepository
	cache     cache.Cache
	publisher events.Publisher
	group     singleflight.Group

	// gens counts task creations per space key. A load only fills the cache
	// when no creation happened while it ran.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewTaskService(tasks repository.TaskRepository, spaces repository.SpaceRepository, c cache.Cache, pub events.Publisher) TaskService {
	return &taskService{tasks: tasks, spaces: spaces, cache: c, publisher: pub, gens: make(map[string]uint64)}
}

func (s *taskService) FindBySpace(ctx context.Context, spaceID string) ([]TaskResponse, error) {
	// The cache is shared by all members, so the caller must pass the policy check first.
	if _, err := s.spaces.FindByID(ctx, spaceID); err != nil {
		return nil, fmt.Errorf("space %s: %w", spaceID, err)
	}

	key := cache.TasksKey(spaceID)
	if b, ok := s.cache.Get(ctx, key); ok {
		var cached []TaskResponse
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
		logger.Debug(ctx, "Discarding undecodable cached tasks", "key", key)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		gen := s.generation(key)
		tasks, err := s.tasks.FindMany(flightCtx, repository.TaskQuery{SpaceID: spaceID, Order: repository.NewestFirst})
		if err != nil {
			return nil, err
		}
		responses := make([]TaskResponse, 0, len(tasks))
		for _, t := range tasks {
			responses = append(responses, toTaskResponse(t))
		}
		if b, err := json.Marshal(responses); err == nil {
			s.fill(flightCtx, key, gen, b)
		}
		return responses, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks of space %s: %w", spaceID, err)
	}
	shared := v.([]TaskResponse)
	out := make([]TaskResponse, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *taskService) Create(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	space, err := s.spaces.FindByID(ctx, req.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("space %s: %w", req.SpaceID, err)
	}

	task := &domain.Task{
		Title:   title,
		SpaceID: space.ID,
		OwnerID: space.OwnerID,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		task.Description = &desc
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	key := cache.TasksKey(space.ID)
	s.bump(key)
	s.group.Forget(key)
	s.cache.Invalidate(ctx, key)
	publish(ctx, s.publisher, events.Event{
		Type:     events.TaskCreated,
		EntityID: task.ID,
		SpaceID:  space.ID,
		UserID:   policy.FromContext(ctx).UserID,
		At:       task.CreatedAt,
	})

	resp := toTaskResponse(*task)
	return &resp, nil
}

func (s *taskService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

func (s *taskService) bump(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[key]++
}

// fill caches b unless the key's tasks changed after generation gen was read.
func (s *taskService) fill(ctx context.Context, key string, gen uint64, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		logger.Debug(ctx, "Skipping cache fill for outdated tasks", "key", key)
		return
	}
	s.cache.Set(ctx, key, b)
}
