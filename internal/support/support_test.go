package support

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/krishimitra/advisor/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	tickets   []*domain.Ticket
	createErr error
}

func (r *fakeRepo) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, ticket)
	return nil
}

func (r *fakeRepo) ListTickets(_ context.Context, userID string) ([]*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func TestSubmitResolvesByTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message  string
		category string
		contains string
	}{
		{"pest on my tomato", "pest", "neem oil"},
		{"कीट लग गए हैं", "pest", Helpline},
		{"मौसम कैसा रहेगा", "weather", "IMD"},
		{"Which SCHEME applies to me?", "scheme", "PM-KISAN"},
		{"pest and weather", "pest", "neem oil"},
		{"my loan is stuck", "default", "Our experts will contact you soon"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewService(repo)

			ticket, err := svc.Submit(context.Background(), "user-1", "  "+tt.message+"  ")
			if err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if ticket.Category != tt.category {
				t.Fatalf("category = %q, want %q", ticket.Category, tt.category)
			}
			if !strings.Contains(ticket.Response, tt.contains) {
				t.Fatalf("response %q does not contain %q", ticket.Response, tt.contains)
			}
			if !strings.Contains(ticket.Response, " • ") {
				t.Fatalf("expected bilingual response, got %q", ticket.Response)
			}
			if ticket.Status != domain.TicketResolved {
				t.Fatalf("status = %q, want resolved", ticket.Status)
			}
			if ticket.Message != tt.message {
				t.Fatalf("message = %q, want trimmed %q", ticket.Message, tt.message)
			}
			if ticket.ID == "" || ticket.CreatedAt.IsZero() {
				t.Fatalf("expected id and timestamp, got %+v", ticket)
			}
			if len(repo.tickets) != 1 {
				t.Fatalf("expected 1 stored ticket, got %d", len(repo.tickets))
			}
		})
	}
}

func TestSubmitRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := NewService(repo)

	_, err := svc.Submit(context.Background(), "user-1", " \n ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(repo.tickets) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(repo.tickets))
	}
}

func TestSubmitWrapsRepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	svc := NewService(&fakeRepo{createErr: boom})

	_, err := svc.Submit(context.Background(), "user-1", "pest")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestListReturnsOnlyCallersTickets(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	for _, msg := range []string{"pest", "weather", "scheme"} {
		if _, err := svc.Submit(ctx, "user-1", msg); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if _, err := svc.Submit(ctx, "user-2", "pest"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	tickets, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.UserID != "user-1" {
			t.Fatalf("unexpected ticket for %q", ticket.UserID)
		}
	}
}
