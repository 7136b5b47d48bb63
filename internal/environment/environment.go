// Package environment manages named variable sets and the active pointer.
// At least one environment always exists; every mutation is persisted
// immediately.
package environment

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/vedsharma/apiplay/internal/logging"
	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
)

// Seeded when the store is empty
const (
	DefaultID   = "default"
	DefaultName = "Default"
)

var (
	// ErrNotFound is returned for an unknown environment ID
	ErrNotFound = errors.New("environment not found")

	// ErrLastEnvironment is returned when deleting the only environment
	ErrLastEnvironment = errors.New("cannot delete the last remaining environment")

	// ErrEmptyName is returned when creating an environment without a name
	ErrEmptyName = errors.New("environment name is required")
)

// Store is the environment CRUD layer over a storage.EnvironmentStore
type Store struct {
	repo   storage.EnvironmentStore
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger discards output.
func NewStore(repo storage.EnvironmentStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{repo: repo, logger: logger}
}

// Slug derives an ID from a display name: lowercase, whitespace runs
// replaced by a single hyphen.
func Slug(name string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	if slug == "" {
		return "environment"
	}
	return slug
}

// uniqueID suffixes -2, -3, ... until the slug is unused
func uniqueID(slug string, taken map[string]*model.Environment) string {
	if _, ok := taken[slug]; !ok {
		return slug
	}
	for n := 2; ; n++ {
		id := slug + "-" + strconv.Itoa(n)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func sortedIDs(envs map[string]*model.Environment) []string {
	ids := make([]string, 0, len(envs))
	for id := range envs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load returns all environments, seeding the default one and repairing a
// dangling active pointer if needed.
func (s *Store) Load() (*model.Environments, error) {
	envs, err := s.repo.LoadEnvironments()
	if err != nil {
		return nil, fmt.Errorf("load environments: %w", err)
	}
	if envs.Environments == nil {
		envs.Environments = make(map[string]*model.Environment)
	}

	dirty := false
	if len(envs.Environments) == 0 {
		envs.Environments[DefaultID] = &model.Environment{ID: DefaultID, Name: DefaultName, Variables: map[string]string{}}
		dirty = true
	}
	if _, ok := envs.Environments[envs.Active]; !ok {
		envs.Active = sortedIDs(envs.Environments)[0]
		dirty = true
	}

	if dirty {
		if err := s.save(envs); err != nil {
			return nil, err
		}
	}
	return envs, nil
}

func (s *Store) save(envs *model.Environments) error {
	if err := s.repo.SaveEnvironments(envs); err != nil {
		return fmt.Errorf("save environments: %w", err)
	}
	return nil
}

// List returns all environments ordered by ID
func (s *Store) List() ([]*model.Environment, string, error) {
	envs, err := s.Load()
	if err != nil {
		return nil, "", err
	}

	list := make([]*model.Environment, 0, len(envs.Environments))
	for _, id := range sortedIDs(envs.Environments) {
		list = append(list, envs.Environments[id])
	}
	return list, envs.Active, nil
}

// Get returns one environment
func (s *Store) Get(id string) (*model.Environment, error) {
	envs, err := s.Load()
	if err != nil {
		return nil, err
	}
	env, ok := envs.Environments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return env, nil
}

// Create adds an empty environment whose ID is derived from name. A name
// whose slug is taken gets a numeric suffix instead of overwriting.
func (s *Store) Create(name string) (*model.Environment, error) {
	return s.CreateWithVariables(name, nil)
}

// CreateWithVariables adds an environment seeded with a copy of vars
func (s *Store) CreateWithVariables(name string, vars map[string]string) (*model.Environment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	envs, err := s.Load()
	if err != nil {
		return nil, err
	}

	env := &model.Environment{
		ID:        uniqueID(Slug(name), envs.Environments),
		Name:      name,
		Variables: make(map[string]string, len(vars)),
	}
	for k, v := range vars {
		env.Variables[k] = v
	}
	envs.Environments[env.ID] = env

	if err := s.save(envs); err != nil {
		return nil, err
	}

	s.logger.Debug("environment created", "id", env.ID, "variables", len(env.Variables))
	return env, nil
}

// Delete removes an environment. The last one cannot be deleted; if the
// active one is removed, the first remaining ID becomes active.
func (s *Store) Delete(id string) error {
	envs, err := s.Load()
	if err != nil {
		return err
	}

	if _, ok := envs.Environments[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(envs.Environments) == 1 {
		return ErrLastEnvironment
	}

	delete(envs.Environments, id)
	if envs.Active == id {
		envs.Active = sortedIDs(envs.Environments)[0]
		s.logger.Info("active environment moved", "from", id, "to", envs.Active)
	}

	return s.save(envs)
}

// Active returns the active environment
func (s *Store) Active() (*model.Environment, error) {
	envs, err := s.Load()
	if err != nil {
		return nil, err
	}
	return envs.Environments[envs.Active], nil
}

// SetActive points the active pointer at id
func (s *Store) SetActive(id string) error {
	envs, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := envs.Environments[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	envs.Active = id
	return s.save(envs)
}

// SetVariable sets key to value in environment id. Keys are exact-match.
func (s *Store) SetVariable(id, key, value string) error {
	return s.mutate(id, func(env *model.Environment) {
		env.Variables[key] = value
	})
}

// RemoveVariable deletes key from environment id; absent keys are ignored
func (s *Store) RemoveVariable(id, key string) error {
	return s.mutate(id, func(env *model.Environment) {
		delete(env.Variables, key)
	})
}

func (s *Store) mutate(id string, fn func(env *model.Environment)) error {
	envs, err := s.Load()
	if err != nil {
		return err
	}
	env, ok := envs.Environments[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if env.Variables == nil {
		env.Variables = make(map[string]string)
	}
	fn(env)
	return s.save(envs)
}

// Variables returns the active environment's variables, or those of id when
// id is non-empty.
func (s *Store) Variables(id string) (map[string]string, error) {
	var env *model.Environment
	var err error
	if id == "" {
		env, err = s.Active()
	} else {
		env, err = s.Get(id)
	}
	if err != nil {
		return nil, err
	}
	return env.Variables, nil
}
