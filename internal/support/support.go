// Package support answers support desk queries with a fixed reply per
// topic and files them as resolved tickets.
package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krishimitra/advisor/internal/domain"
	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
)

// ErrEmptyMessage is returned for a blank query.
var ErrEmptyMessage = errors.New("support message is empty")

// Helpline is quoted in replies that route the farmer to a person.
const Helpline = "1800-180-1551"

var table = intent.Table{
	{Category: intent.Pest, Keywords: []string{"कीट", "pest"}},
	{Category: intent.Weather, Keywords: []string{"मौसम", "weather"}},
	{Category: intent.Scheme, Keywords: []string{"योजना", "scheme"}},
}

var replies = map[intent.Category]local.TextSet{
	intent.Pest: local.New(
		"नीम का तेल और जैविक कीटनाशक का उपयोग करें। विशेषज्ञ से सलाह के लिए "+Helpline+" पर कॉल करें।",
		"Use neem oil and organic pesticides. Call "+Helpline+" for expert advice.",
	),
	intent.Weather: local.New(
		"मौसम की जानकारी के लिए हमारा वेदर सेक्शन देखें या IMD की वेबसाइट पर जाएं।",
		"Check our weather section or visit IMD website for weather information.",
	),
	intent.Scheme: local.New(
		"PM-KISAN, फसल बीमा और अन्य योजनाओं की जानकारी के लिए हमारा स्कीम सेक्शन देखें।",
		"Check our schemes section for PM-KISAN, crop insurance and other schemes.",
	),
	intent.Default: local.New(
		"आपका प्रश्न प्राप्त हुआ है। हमारे विशेषज्ञ जल्द ही आपसे संपर्क करेंगे। तत्काल सहायता के लिए "+Helpline+" पर कॉल करें।",
		"Your query is received. Our experts will contact you soon. For immediate help, call "+Helpline+".",
	),
}

// Repository stores tickets.
type Repository interface {
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	ListTickets(ctx context.Context, userID string) ([]*domain.Ticket, error)
}

// Service files support tickets.
type Service struct {
	repo       Repository
	classifier *intent.Classifier
	now        func() time.Time
}

// NewService returns a service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:       repo,
		classifier: intent.New(table, intent.Default),
		now:        time.Now,
	}
}

// AutoResponse returns the category and bilingual reply for message.
func (s *Service) AutoResponse(message string) (intent.Category, string) {
	c := s.classifier.Classify(message)
	return c, replies[c].Text(local.Bilingual)
}

// Submit answers message and stores it as a resolved ticket.
func (s *Service) Submit(ctx context.Context, userID, message string) (*domain.Ticket, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	category, response := s.AutoResponse(message)
	ticket := &domain.Ticket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		Category:  string(category),
		Status:    domain.TicketResolved,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	slog.Info("Support ticket resolved", "user_id", userID, "ticket_id", ticket.ID, "category", ticket.Category)
	return ticket, nil
}

// List returns the user's tickets, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	tickets, err := s.repo.ListTickets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}
