package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// SeedConfig is the bootstrap admin account and whether to add samples.
type SeedConfig struct {
	AdminName      string
	AdminEmail     string
	AdminPassword  string
	AdminGender    model.Gender
	AdminBatchYear int
	Samples        bool
}

// Seeder prepares a fresh database on startup:
//   - an admin account when no admin exists
//   - two sample events when there are no events
//   - two sample news items when there is no news
//
// Every step is skipped when its collection already has data, so running
// it on each start is safe.
type Seeder struct {
	store     repository.Store
	passwords *auth.PasswordService
	cfg       SeedConfig
	logger    *slog.Logger
}

func NewSeeder(store repository.Store, passwords *auth.PasswordService, cfg SeedConfig, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, passwords: passwords, cfg: cfg, logger: logger}
}

// Run performs every step it can and returns the failures joined. The
// server logs them and keeps starting.
func (s *Seeder) Run(ctx context.Context) error {
	admin, err := s.ensureAdmin(ctx)
	if err != nil {
		return err
	}
	if !s.cfg.Samples {
		return nil
	}
	return errors.Join(
		s.seedEvents(ctx, admin.ID),
		s.seedNews(ctx, admin.ID),
	)
}

// ensureAdmin returns the first admin by name, creating one from the
// configured credentials when there is none.
func (s *Seeder) ensureAdmin(ctx context.Context) (*model.User, error) {
	admins, err := s.store.Users().List(ctx, repository.UserFilter{Role: model.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("service/seed: listing admins: %w", err)
	}
	if len(admins) > 0 {
		return &admins[0], nil
	}

	hash, err := s.passwords.Hash(s.cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("service/seed: hashing admin password: %w", err)
	}
	admin := &model.User{
		Name:         s.cfg.AdminName,
		Email:        s.cfg.AdminEmail,
		PasswordHash: hash,
		Gender:       s.cfg.AdminGender,
		BatchYear:    s.cfg.AdminBatchYear,
		Role:         model.RoleAdmin,
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("service/seed: creating admin: %w", err)
	}

	s.logger.Info("admin user created", slog.String("email", admin.Email))
	return admin, nil
}

func (s *Seeder) seedEvents(ctx context.Context, adminID string) error {
	n, err := s.store.Events().Count(ctx)
	if err != nil {
		return fmt.Errorf("service/seed: counting events: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, e := range sampleEvents(adminID) {
		if err := s.store.Events().Create(ctx, e); err != nil {
			return fmt.Errorf("service/seed: creating event %q: %w", e.Title, err)
		}
	}
	s.logger.Info("sample events created")
	return nil
}

func (s *Seeder) seedNews(ctx context.Context, adminID string) error {
	n, err := s.store.News().Count(ctx)
	if err != nil {
		return fmt.Errorf("service/seed: counting news: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, item := range sampleNews(adminID) {
		if err := s.store.News().Create(ctx, item); err != nil {
			return fmt.Errorf("service/seed: creating news %q: %w", item.Title, err)
		}
	}
	s.logger.Info("sample news created")
	return nil
}

func sampleEvents(adminID string) []*model.Event {
	return []*model.Event{
		{
			Title:       "Annual Alumni Meet 2024",
			Description: "Join us for our annual alumni gathering with networking opportunities and cultural events.",
			Date:        time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
			Location:    "JNV Campus",
			CreatedBy:   adminID,
		},
		{
			Title:       "Career Guidance Workshop",
			Description: "Expert alumni sharing insights about various career paths and opportunities.",
			Date:        time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC),
			Location:    "Virtual Event",
			CreatedBy:   adminID,
		},
	}
}

func sampleNews(adminID string) []*model.News {
	return []*model.News{
		{
			Title:    "New Campus Building Inauguration",
			Content:  "The new academic block will be inaugurated next month, expanding our facilities.",
			Category: model.CategoryAnnouncement,
			Author:   adminID,
		},
		{
			Title:    "Alumni Achievement: Dr. Sharma receives National Award",
			Content:  "Our distinguished alumni Dr. Sharma has been awarded for contributions to medical research.",
			Category: model.CategoryAchievement,
			Author:   adminID,
		},
	}
}
