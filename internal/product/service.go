package product

import log "github.com/sirupsen/logrus"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() ([]Product, error) {
	return s.repo.List()
}

func (s *Service) GetByID(id string) (Product, error) {
	if id == "" {
		return Product{}, ErrNotFound
	}
	return s.repo.GetByID(id)
}

// ResetProducts replaces all products with the given list (used for dev / seeding).
func (s *Service) ResetProducts(products []Product) error {
	return s.repo.Reset(products)
}

// SeedIfEmpty inserts the given products only when the store holds none.
func (s *Service) SeedIfEmpty(products []Product) error {
	n, err := s.repo.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	log.WithField("count", len(products)).Info("seeding product catalogue")
	return s.repo.Reset(products)
}
