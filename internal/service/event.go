package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
)

// EventInput is the body of an event create request.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Image       string    `json:"image"`
}

// EventService manages events and registrations. Admin checks happen in
// the gate before these methods are reached.
type EventService struct {
	events repository.EventRepository
	logger *slog.Logger
}

func NewEventService(events repository.EventRepository, logger *slog.Logger) *EventService {
	return &EventService{events: events, logger: logger}
}

func (s *EventService) List(ctx context.Context, filter repository.EventFilter) ([]model.Event, error) {
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/event: listing: %w", err)
	}
	return events, nil
}

// Create stores a new event owned by creatorID with no registrations.
func (s *EventService) Create(ctx context.Context, creatorID string, in EventInput) (*model.Event, error) {
	event := &model.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		Image:       in.Image,
		CreatedBy:   creatorID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		slog.String("eventID", event.ID),
		slog.String("createdBy", creatorID),
	)
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	event, err := s.events.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event updated", slog.String("eventID", id))
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.events.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", slog.String("eventID", id))
	return nil
}

// Register signs userID up for the event. The repository makes the
// check-and-append atomic.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (*model.Event, error) {
	event, err := s.events.Register(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event registration",
		slog.String("eventID", eventID),
		slog.String("userID", userID),
		slog.Int("registered", len(event.RegisteredUsers)),
	)
	return event, nil
}
