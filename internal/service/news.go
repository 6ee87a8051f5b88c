package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// NewsInput is the body of a news create request. An empty Category is
// stored as general.
type NewsInput struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Image    string         `json:"image"`
	Category model.Category `json:"category"`
}

type NewsService struct {
	news   repository.NewsRepository
	logger *slog.Logger
}

func NewNewsService(news repository.NewsRepository, logger *slog.Logger) *NewsService {
	return &NewsService{news: news, logger: logger}
}

func (s *NewsService) List(ctx context.Context, filter repository.NewsFilter) ([]model.News, error) {
	items, err := s.news.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/news: listing: %w", err)
	}
	return items, nil
}

func (s *NewsService) Create(ctx context.Context, authorID string, in NewsInput) (*model.News, error) {
	news := &model.News{
		Title:    in.Title,
		Content:  in.Content,
		Image:    in.Image,
		Category: in.Category,
		Author:   authorID,
	}
	if err := s.news.Create(ctx, news); err != nil {
		return nil, err
	}

	s.logger.Info("news published",
		slog.String("newsID", news.ID),
		slog.String("category", string(news.Category)),
	)
	return news, nil
}

func (s *NewsService) Update(ctx context.Context, id string, patch model.NewsPatch) (*model.News, error) {
	news, err := s.news.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("news updated", slog.String("newsID", id))
	return news, nil
}

func (s *NewsService) Delete(ctx context.Context, id string) error {
	if err := s.news.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.Info("news deleted", slog.String("newsID", id))
	return nil
}
