package services

import (
	"context"
	"errors"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/intro"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// IntroService is the ledger of introduction requests
type IntroService struct {
	actors  ports.ActorDirectory
	intros  ports.IntroRepository
	mailer  ports.Mailer
	metrics ports.Metrics
	clock   ports.Clock
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewIntroService creates a new intro service
func NewIntroService(
	actors ports.ActorDirectory,
	intros ports.IntroRepository,
	mailer ports.Mailer,
	metrics ports.Metrics,
	clock ports.Clock,
	logger *zap.Logger,
) *IntroService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &IntroService{
		actors:  actors,
		intros:  intros,
		mailer:  mailer,
		metrics: metrics,
		clock:   clock,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// RequestIntro records a pending introduction request. Repeating the request
// is safe: a pending row is left alone and a rejected one is revived. The
// boolean reports whether the call opened a new pending request, which
// includes reviving a rejected one.
func (s *IntroService) RequestIntro(ctx context.Context, requesterID, targetID string) (*intro.Request, bool, error) {
	ctx, span := s.tracer.Start(ctx, "IntroService.RequestIntro",
		trace.WithAttributes(
			attribute.String("requester_id", requesterID),
			attribute.String("target_id", targetID),
		))
	defer span.End()

	if requesterID == targetID {
		return nil, false, pkgerrors.NewSelfReferenceError("request an introduction to")
	}

	requester, target, err := s.loadPair(ctx, requesterID, targetID)
	if err != nil {
		return nil, false, err
	}
	if err := intro.CheckEntitlement(requester, target); err != nil {
		s.metrics.RecordIntroRequest("forbidden")
		return nil, false, err
	}

	stored, created, err := s.intros.UpsertPending(ctx, intro.NewRequest(requesterID, targetID, s.clock()))
	if err != nil {
		span.RecordError(err)
		s.metrics.RecordIntroRequest(OutcomeError)
		s.logger.Error("Failed to upsert intro request",
			zap.String("requester_id", requesterID),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return nil, false, pkgerrors.NewDatabaseError("upsert intro request", err)
	}

	outcome := OutcomeUnchanged
	if created {
		outcome = OutcomeCreated
	}
	s.metrics.RecordIntroRequest(outcome)
	s.logger.Info("Intro requested",
		zap.String("intro_id", stored.ID),
		zap.String("requester_id", requesterID),
		zap.String("target_id", targetID),
		zap.String("status", string(stored.Status)),
		zap.Bool("created", created),
	)
	return stored, created, nil
}

// ListPending returns pending introductions addressed to the actor
func (s *IntroService) ListPending(ctx context.Context, actorID string) ([]ports.PendingIntro, error) {
	pending, err := s.intros.ListPendingIntros(ctx, actorID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list pending intros", err)
	}
	return pending, nil
}

// RespondToIntro applies the target's decision. Accepting notifies both
// participants exactly once; the notification runs in the background and
// its failures are only logged.
func (s *IntroService) RespondToIntro(ctx context.Context, id, responderID string, decision intro.Status) (*intro.Request, error) {
	ctx, span := s.tracer.Start(ctx, "IntroService.RespondToIntro",
		trace.WithAttributes(
			attribute.String("intro_id", id),
			attribute.String("decision", string(decision)),
		))
	defer span.End()

	req, err := s.intros.GetIntro(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, pkgerrors.NewNotFoundError("introduction request")
		}
		return nil, pkgerrors.NewDatabaseError("get intro request", err)
	}
	if req.TargetID != responderID {
		return nil, pkgerrors.NewNotFoundError("introduction request")
	}

	previous := req.Status
	if err := req.Respond(decision, s.clock()); err != nil {
		return nil, err
	}

	if err := s.intros.TransitionIntro(ctx, req.ID, previous, req.Status, req.UpdatedAt); err != nil {
		if errors.Is(err, ports.ErrStaleState) {
			return nil, pkgerrors.NewInvalidTransitionError("introduction", "terminal", string(decision))
		}
		span.RecordError(err)
		return nil, pkgerrors.NewDatabaseError("update intro request", err)
	}

	s.metrics.RecordIntroResponse(string(decision))
	s.logger.Info("Intro answered",
		zap.String("intro_id", req.ID),
		zap.String("status", string(req.Status)),
	)

	if req.Status == intro.StatusAccepted {
		accepted := *req
		go s.notifyAccepted(context.WithoutCancel(ctx), &accepted)
	}
	return req, nil
}

func (s *IntroService) notifyAccepted(ctx context.Context, req *intro.Request) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	requester, target, err := s.loadPair(ctx, req.RequesterID, req.TargetID)
	if err != nil {
		s.logger.Error("Failed to load intro participants",
			zap.String("intro_id", req.ID),
			zap.Error(err),
		)
		return
	}

	messages := []ports.Email{
		introEmail(requester, target),
		introEmail(target, requester),
	}
	if err := s.mailer.Send(ctx, messages...); err != nil {
		s.logger.Error("Failed to send intro notifications",
			zap.String("intro_id", req.ID),
			zap.String("campaign", intro.CampaignAccepted),
			zap.Error(err),
		)
	}
}

func introEmail(to, other *actor.Actor) ports.Email {
	return ports.Email{
		Campaign:    intro.CampaignAccepted,
		RecipientID: to.ID,
		To:          to.Email,
		Data: map[string]string{
			"recipientName":      to.DisplayName,
			"introducedId":       other.ID,
			"introducedName":     other.DisplayName,
			"introducedHeadline": other.Headline,
			"introducedRole":     string(other.Role),
		},
	}
}

func (s *IntroService) loadPair(ctx context.Context, requesterID, targetID string) (*actor.Actor, *actor.Actor, error) {
	found, err := s.actors.GetActors(ctx, []string{requesterID, targetID})
	if err != nil {
		return nil, nil, pkgerrors.NewDatabaseError("get actors", err)
	}
	requester, ok := found[requesterID]
	if !ok {
		return nil, nil, pkgerrors.NewUnauthorizedError("unknown actor")
	}
	target, ok := found[targetID]
	if !ok || !target.IsActive() {
		return nil, nil, pkgerrors.NewNotFoundError("actor")
	}
	return requester, target, nil
}
