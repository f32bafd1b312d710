package notification

import (
	"context"
	"fmt"
	"strings"

	appdomain "github.com/dfund/marketplace/internal/application/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	EventApplicationSubmitted = "application.submitted"
	EventApplicationReviewed  = "application.reviewed"
	EventApplicationAccepted  = "application.accepted"
	EventUserWelcome          = "user.welcome"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Dispatcher    *Dispatcher
	Users         authdomain.Repository
	Opportunities oppdomain.Service
}

// Notifier turns lifecycle events into emails. Every lookup happens on the
// dispatcher's workers so callers only pay for an enqueue.
type Notifier struct {
	log           *zap.Logger
	dispatcher    *Dispatcher
	users         authdomain.Repository
	opportunities oppdomain.Service
	renderer      *renderer
}

func New(p Params) (*Notifier, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		log:           p.Log.Named("notification"),
		dispatcher:    p.Dispatcher,
		users:         p.Users,
		opportunities: p.Opportunities,
		renderer:      r,
	}, nil
}

func (n *Notifier) NotifyOwnerOfSubmission(ctx context.Context, app appdomain.Application, opp appdomain.OpportunityRef) {
	n.enqueue(ctx, EventApplicationSubmitted, app, func(ctx context.Context) (Message, error) {
		owner, err := n.users.FindByID(ctx, opp.OwnerID)
		if err != nil {
			return Message{}, fmt.Errorf("load owner: %w", err)
		}
		candidate, err := n.users.FindByID(ctx, app.CandidateID)
		if err != nil {
			return Message{}, fmt.Errorf("load candidate: %w", err)
		}
		name, err := n.opportunityName(ctx, opp)
		if err != nil {
			return Message{}, err
		}

		data := templateData{
			Subject:          fmt.Sprintf(subjectSubmitted, name),
			RecipientName:    owner.FullName(),
			CandidateName:    candidate.FullName(),
			OpportunityName:  name,
			ApplicationTitle: deref(app.Title),
		}
		return n.message(owner.Email, templateSubmitted, data)
	})
}

func (n *Notifier) NotifyCandidateOfReview(ctx context.Context, app appdomain.Application, opp appdomain.OpportunityRef, accepted bool) {
	eventType, tmpl, subject := EventApplicationReviewed, templateReviewed, subjectReviewed
	if accepted {
		eventType, tmpl, subject = EventApplicationAccepted, templateAccepted, subjectAccepted
	}

	n.enqueue(ctx, eventType, app, func(ctx context.Context) (Message, error) {
		candidate, err := n.users.FindByID(ctx, app.CandidateID)
		if err != nil {
			return Message{}, fmt.Errorf("load candidate: %w", err)
		}
		name, err := n.opportunityName(ctx, opp)
		if err != nil {
			return Message{}, err
		}

		data := templateData{
			Subject:         fmt.Sprintf(subject, name),
			RecipientName:   candidate.FullName(),
			OpportunityName: name,
			FeedbackTitle:   deref(app.FeedbackTitle),
			ReviewFeedback:  deref(app.ReviewFeedback),
		}
		return n.message(candidate.Email, tmpl, data)
	})
}

// Welcome implements the auth registration hook.
func (n *Notifier) Welcome(ctx context.Context, user *authdomain.User) {
	if user == nil {
		return
	}
	recipient := *user
	_, err := n.dispatcher.Enqueue(ctx, EventUserWelcome, func(ctx context.Context) (Message, error) {
		return n.message(recipient.Email, templateWelcome, templateData{
			Subject:       subjectWelcome,
			RecipientName: recipient.FullName(),
		})
	})
	if err != nil {
		n.log.Warn("welcome email not queued", zap.String("user_id", recipient.ID.String()), zap.Error(err))
	}
}

func (n *Notifier) enqueue(ctx context.Context, eventType string, app appdomain.Application, build BuildFunc) {
	if _, err := n.dispatcher.Enqueue(ctx, eventType, build); err != nil {
		n.log.Warn("notification not queued",
			zap.String("event_type", eventType),
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
	}
}

func (n *Notifier) opportunityName(ctx context.Context, opp appdomain.OpportunityRef) (string, error) {
	item, err := n.opportunities.GetByID(ctx, opp.ID)
	if err != nil {
		return "", fmt.Errorf("load opportunity: %w", err)
	}
	return item.Name, nil
}

func (n *Notifier) message(to, tmpl string, data templateData) (Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return Message{}, fmt.Errorf("recipient has no email")
	}
	body, err := n.renderer.render(tmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: data.Subject, HTML: body}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
