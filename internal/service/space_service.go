package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Tomlord1122/space-todo/internal/domain"
	"github.com/Tomlord1122/space-todo/internal/repository"
)

type SpaceService interface {
	GetBySlug(ctx context.Context, slug string) (*SpaceResponse, error)
	// ResolveListPage loads the space by slug and the list by id. Either
	// missing (or invisible to the principal) yields domain.ErrNotFound.
	ResolveListPage(ctx context.Context, slug, listID string) (*ListPageProps, error)
	// ResolveSpacePage loads the space by slug with its visible lists.
	ResolveSpacePage(ctx context.Context, slug string) (*SpacePageProps, error)
}

type spaceService struct {
	spaces repository.SpaceRepository
	lists  repository.ListRepository
}

func NewSpaceService(spaces repository.SpaceRepository, lists repository.ListRepository) SpaceService {
	return &spaceService{spaces: spaces, lists: lists}
}

func (s *spaceService) GetBySlug(ctx context.Context, slug string) (*SpaceResponse, error) {
	space, err := s.spaces.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("space %q: %w", slug, err)
	}
	resp := toSpaceResponse(*space)
	return &resp, nil
}

func (s *spaceService) ResolveListPage(ctx context.Context, slug, listID string) (*ListPageProps, error) {
	if slug == "" || uuid.Validate(listID) != nil {
		return nil, domain.ErrNotFound
	}
	space, err := s.spaces.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("space %q: %w", slug, err)
	}
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", listID, err)
	}
	if list.SpaceID != space.ID {
		return nil, fmt.Errorf("list %s is not in space %q: %w", listID, slug, domain.ErrNotFound)
	}
	return &ListPageProps{Space: toSpaceResponse(*space), List: toListResponse(*list)}, nil
}

func (s *spaceService) ResolveSpacePage(ctx context.Context, slug string) (*SpacePageProps, error) {
	if slug == "" {
		return nil, domain.ErrNotFound
	}
	space, err := s.spaces.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("space %q: %w", slug, err)
	}
	lists, err := s.lists.FindBySpace(ctx, space.ID)
	if err != nil {
		return nil, fmt.Errorf("lists of space %q: %w", slug, err)
	}
	props := &SpacePageProps{Space: toSpaceResponse(*space), Lists: make([]ListResponse, 0, len(lists))}
	for _, l := range lists {
		props.Lists = append(props.Lists, toListResponse(l))
	}
	return props, nil
}
