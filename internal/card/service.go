package card

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardvault/internal/extraction"
)

// IDGenerator generates unique IDs for cards
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUID identifiers
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles card operations
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	flow        *Controller
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor extraction.Extractor, storage Storage, flow *Controller) *Service {
	return NewServiceWithDeps(db, extractor, storage, flow, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, flow *Controller, idGen IDGenerator, timeSrc TimeSource) *Service {
	if flow == nil {
		flow = NewController()
	}
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		flow:        flow,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Flow exposes the view state controller owning the upload flow
func (s *Service) Flow() *Controller {
	return s.flow
}

var (
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras generate very long names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = specialChars.ReplaceAllString(base, "")
	base = multiSpace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "card"
	}

	return base + ext
}

// ProcessCard archives a card image, extracts its contact fields and creates
// the record. A card is created even when every extracted field is empty; an
// unreadable card is still a stored card. uploadedBy must already be
// resolved for the submitting session.
func (s *Service) ProcessCard(filename string, data []byte, contentType string, uploadedBy string) (*Card, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("archiving image: %w", err)
	}

	// Payload is in hand; the flow moves to extraction.
	_ = s.flow.Advance(StateExtracting)

	details, err := s.extractor.ExtractCard(data, contentType)
	if err != nil {
		slog.Error("Failed to extract card fields",
			"filename", filename,
			"content_type", contentType,
			"image_size", len(data),
			"error", err,
		)
		// Clean up the archived image since extraction failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("extracting card fields: %w", err)
	}

	_ = s.flow.Advance(StatePersisting)

	card := &Card{
		ID:            id,
		CompanyName:   details.CompanyName,
		ContactPerson: details.ContactPerson,
		PhoneNumber:   details.PhoneNumber,
		Email:         details.Email,
		Website:       details.Website,
		Address:       details.Address,
		Timestamp:     now.UnixMilli(),
		UploadedBy:    uploadedBy,
		Filename:      savedPath,
		ContentType:   contentType,
		UpdatedAt:     now,
	}

	if err := s.db.SaveCard(card); err != nil {
		// Clean up the image if the database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving card to database: %w", err)
	}

	return card, nil
}

// GetCard retrieves a card by ID
func (s *Service) GetCard(id string) (*Card, error) {
	card, err := s.db.GetCard(id)
	if err != nil {
		return nil, fmt.Errorf("getting card: %w", err)
	}
	return card, nil
}

// ListCards returns all cards sorted by timestamp descending
func (s *Service) ListCards() ([]*Card, error) {
	cards, err := s.db.ListCards()
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	return cards, nil
}

// UpdateCard overwrites exactly the six textual fields of a card. ID,
// timestamp and uploadedBy are never altered.
func (s *Service) UpdateCard(id string, fields Fields) (*Card, error) {
	card, err := s.db.GetCard(id)
	if err != nil {
		return nil, fmt.Errorf("getting card for update: %w", err)
	}

	card.applyFields(fields)
	card.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCard(card); err != nil {
		return nil, fmt.Errorf("updating card: %w", err)
	}
	return card, nil
}

// DeleteCard removes a card and its archived image. Deleting an unknown ID
// surfaces the store's not-found error; it is logged, not fatal.
func (s *Service) DeleteCard(id string) error {
	card, err := s.db.GetCard(id)
	if err != nil {
		return fmt.Errorf("getting card for deletion: %w", err)
	}

	if card.Filename != "" {
		if err := s.storage.Delete(card.Filename); err != nil {
			// Log but continue with database deletion
			slog.Warn("Failed to delete card image", "filename", card.Filename, "error", err)
		}
	}

	if err := s.db.DeleteCard(id); err != nil {
		return fmt.Errorf("deleting card from database: %w", err)
	}

	s.flow.DropSelection(id)
	return nil
}

// GetCardImage retrieves the archived image for a card
func (s *Service) GetCardImage(id string) ([]byte, string, error) {
	card, err := s.db.GetCard(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting card: %w", err)
	}

	data, err := s.storage.Get(card.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting card image: %w", err)
	}

	return data, card.ContentType, nil
}

// Subscribe registers a live feed over the card list
func (s *Service) Subscribe(onChange ChangeHandler, onError ErrorHandler) (func(), error) {
	return s.db.Subscribe(onChange, onError)
}
