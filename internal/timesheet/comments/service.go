package comments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Service validates and records comments.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Add appends a comment to a declaration's log.
func (s *Service) Add(ctx context.Context, c Comment) (Comment, error) {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return Comment{}, errors.New("comments: content required")
	}
	if c.DeclarationID == 0 {
		return Comment{}, errors.New("comments: declaration required")
	}
	if c.AuthorID == 0 {
		return Comment{}, errors.New("comments: author required")
	}
	if c.AuthorRole == "" {
		return Comment{}, errors.New("comments: author role required")
	}
	created, err := s.repo.Insert(ctx, c)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("record comment", slog.Any("error", err))
		}
		return Comment{}, err
	}
	return created, nil
}

// List returns the full comment log of a declaration, oldest first.
func (s *Service) List(ctx context.Context, declarationID int64) ([]Comment, error) {
	return s.repo.ListForDeclaration(ctx, declarationID)
}
