package service

import (
	"context"
	"fmt"
	"sync"

	"bookwise/internal/domain"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
)

// ResourceService держит каталог пулов TOOL/CONSUMABLE в памяти.
// Каталог меняется редко, читается на каждой проверке доступности.
type ResourceService struct {
	repo         domain.Repository
	logger       *zerolog.Logger
	resources    []models.Resource
	resourcesMap map[int64]models.Resource
	mu           sync.RWMutex
}

func NewResourceService(repo domain.Repository, resources []models.Resource, logger *zerolog.Logger) *ResourceService {
	resourcesMap := make(map[int64]models.Resource)
	for _, r := range resources {
		resourcesMap[r.ID] = r
	}

	return &ResourceService{
		repo:         repo,
		logger:       logger,
		resources:    resources,
		resourcesMap: resourcesMap,
	}
}

func (s *ResourceService) GetActiveResources(ctx context.Context) []models.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]models.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active
}

func (s *ResourceService) GetResourceByID(ctx context.Context, id int64) (*models.Resource, error) {
	s.mu.RLock()
	resource, ok := s.resourcesMap[id]
	s.mu.RUnlock()
	if ok {
		return &resource, nil
	}

	loaded, err := s.repo.GetResourceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.resourcesMap[loaded.ID] = *loaded
	s.mu.Unlock()
	return loaded, nil
}

func (s *ResourceService) GetResourceByName(ctx context.Context, name string) (*models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.resources {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("resource not found: %s", name)
}

// Refresh перечитывает каталог компании из БД.
func (s *ResourceService) Refresh(ctx context.Context, companyID int64) error {
	resources, err := s.repo.GetActiveResources(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to refresh resources: %w", err)
	}

	resourcesMap := make(map[int64]models.Resource, len(resources))
	for _, r := range resources {
		resourcesMap[r.ID] = r
	}

	s.mu.Lock()
	s.resources = resources
	s.resourcesMap = resourcesMap
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(resources)).Msg("Каталог ресурсов обновлён")
	return nil
}
