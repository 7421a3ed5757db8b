package store

import "context"

// Persona represents a named persona prompt appended to the system prompt.
type Persona struct {
	ID        int32
	Name      string
	Prompt    string
	CreatedTs int64
}

// FindPersona is the find condition for personas.
type FindPersona struct {
	ID   *int32
	Name *string
}

// DeletePersona is the delete condition for personas.
type DeletePersona struct {
	ID int32
}

func (s *Store) CreatePersona(ctx context.Context, create *Persona) (*Persona, error) {
	return s.driver.CreatePersona(ctx, create)
}

func (s *Store) ListPersonas(ctx context.Context, find *FindPersona) ([]*Persona, error) {
	return s.driver.ListPersonas(ctx, find)
}

func (s *Store) GetPersona(ctx context.Context, find *FindPersona) (*Persona, error) {
	list, err := s.driver.ListPersonas(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeletePersona(ctx context.Context, delete *DeletePersona) error {
	return s.driver.DeletePersona(ctx, delete)
}
