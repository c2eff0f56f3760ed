package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// UserStore keeps users, identified by their namespace, and their favorite
// projects.
type UserStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewUserStore returns a UserStore over b.
func NewUserStore(b *Backend) *UserStore {
	return &UserStore{backend: b, logger: b.logger.Named("user")}
}

// userID returns the id of the user, or "" when the user does not exist.
func (s *session) userID(ctx context.Context, namespace string) (string, error) {
	var id string
	err := s.queryRow(ctx, "SELECT id FROM users WHERE namespace = ?", namespace).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up user %s: %w", namespace, err)
	}
	return id, nil
}

func (s *session) ensureUser(ctx context.Context, namespace string) (string, error) {
	id, err := s.userID(ctx, namespace)
	if err != nil || id != "" {
		return id, err
	}
	id = generateUUID()
	if _, err := s.exec(ctx, "INSERT INTO users (id, namespace) VALUES (?, ?)", id, namespace); err != nil {
		return "", fmt.Errorf("creating user %s: %w", namespace, err)
	}
	return id, nil
}

// Create registers a user. Creating an existing user is a no-op.
func (us *UserStore) Create(ctx context.Context, namespace string) error {
	if namespace == "" {
		return types.ErrInvalidName
	}
	return us.backend.withSession(ctx, func(s *session) error {
		_, err := s.ensureUser(ctx, namespace)
		return err
	})
}

// Exists reports whether the user has been registered.
func (us *UserStore) Exists(ctx context.Context, namespace string) (bool, error) {
	var id string
	err := us.backend.withSession(ctx, func(s *session) error {
		var err error
		id, err = s.userID(ctx, namespace)
		return err
	})
	return id != "", err
}

// AddFavorite marks the project as a favorite of the user, registering the
// user on first use. A missing project yields ErrProjectNotFound and an
// existing favorite ErrProjectAlreadyFavorite.
func (us *UserStore) AddFavorite(ctx context.Context, namespace string, project types.RegistryPath) error {
	if namespace == "" {
		return types.ErrInvalidName
	}
	return us.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, project)
		if err != nil {
			return err
		}
		userID, err := s.ensureUser(ctx, namespace)
		if err != nil {
			return err
		}
		var one int
		err = s.queryRow(ctx, "SELECT 1 FROM favorites WHERE user_id = ? AND project_id = ?", userID, projectID).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s for %s", types.ErrProjectAlreadyFavorite, project, namespace)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking favorite: %w", err)
		}
		if _, err := s.exec(ctx,
			"INSERT INTO favorites (user_id, project_id, created_at) VALUES (?, ?, ?)",
			userID, projectID, s.timestamp(),
		); err != nil {
			return fmt.Errorf("adding favorite: %w", translateUnique(err, types.ErrProjectAlreadyFavorite))
		}
		us.logger.Debug("added favorite", zap.String("namespace", namespace), zap.String("registry_path", project.String()))
		return nil
	})
}

// RemoveFavorite unmarks the project. A project that is not a favorite of
// the user yields ErrProjectNotFavorite.
func (us *UserStore) RemoveFavorite(ctx context.Context, namespace string, project types.RegistryPath) error {
	return us.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, project)
		if err != nil {
			return err
		}
		userID, err := s.userID(ctx, namespace)
		if err != nil {
			return err
		}
		if userID == "" {
			return fmt.Errorf("%w: %s for %s", types.ErrProjectNotFavorite, project, namespace)
		}
		res, err := s.exec(ctx, "DELETE FROM favorites WHERE user_id = ? AND project_id = ?", userID, projectID)
		if err != nil {
			return fmt.Errorf("removing favorite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("removing favorite: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s for %s", types.ErrProjectNotFavorite, project, namespace)
		}
		us.logger.Debug("removed favorite", zap.String("namespace", namespace), zap.String("registry_path", project.String()))
		return nil
	})
}

// Favorites returns the annotations of the user's favorite projects, oldest
// favorite first. An unknown user has no favorites.
func (us *UserStore) Favorites(ctx context.Context, namespace string) (types.AnnotationList, error) {
	results := []types.Annotation{}
	err := us.backend.withSession(ctx, func(s *session) error {
		rows, err := s.query(ctx,
			`SELECT p.namespace, p.name, p.tag, p.private, p.description, p.number_of_samples,
    p.submission_date, p.last_update_date, p.digest, p.pep_schema
    FROM favorites f
    JOIN users u ON u.id = f.user_id
    JOIN projects p ON p.id = f.project_id
    WHERE u.namespace = ?
    ORDER BY f.created_at, p.namespace, p.name, p.tag`,
			namespace,
		)
		if err != nil {
			return fmt.Errorf("querying favorites of %s: %w", namespace, err)
		}
		found, err := collect(rows, scanAnnotation)
		if err != nil {
			return fmt.Errorf("reading favorites of %s: %w", namespace, err)
		}
		results = append(results, found...)
		return nil
	})
	if err != nil {
		return types.AnnotationList{}, err
	}
	return types.AnnotationList{
		Count:   len(results),
		Limit:   len(results),
		Offset:  0,
		Results: results,
	}, nil
}
