package services

import (
	"context"
	"errors"
	"time"

	"github.com/Shani815/vctalenthub-sub000/application/ports"
	"github.com/Shani815/vctalenthub-sub000/domain/actor"
	"github.com/Shani815/vctalenthub-sub000/domain/connection"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Shani815/vctalenthub-sub000/application/services"

// Connection request outcomes reported to metrics
const (
	OutcomeCreated       = "created"
	OutcomeAlreadyExists = "already_exists"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeRejected      = "rejected"
	OutcomeUnchanged     = "unchanged"
	OutcomeError         = "error"
)

// ConnectionService is the ledger of pairwise connection requests
type ConnectionService struct {
	actors  ports.ActorDirectory
	edges   ports.ConnectionRepository
	quota   *QuotaService
	metrics ports.Metrics
	clock   ports.Clock
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	actors ports.ActorDirectory,
	edges ports.ConnectionRepository,
	quota *QuotaService,
	metrics ports.Metrics,
	clock ports.Clock,
	logger *zap.Logger,
) *ConnectionService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &ConnectionService{
		actors:  actors,
		edges:   edges,
		quota:   quota,
		metrics: metrics,
		clock:   clock,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// ConnectionStatus is the symmetric view of a pair
type ConnectionStatus struct {
	Status      string `json:"status"`
	EdgeID      string `json:"edgeId,omitempty"`
	InitiatedBy string `json:"initiatedBy,omitempty"`
}

// Neighbor is a connected actor
type Neighbor struct {
	actor.Summary
	EdgeID         string    `json:"edgeId"`
	ConnectedSince time.Time `json:"connectedSince"`
}

// IncomingRequest is a pending request waiting on the caller
type IncomingRequest struct {
	Edge      *connection.Edge `json:"edge"`
	Requester actor.Summary    `json:"requester"`
}

// RequestConnection records a pending request from requester to target.
// Free-tier requesters are held to the weekly quota.
func (s *ConnectionService) RequestConnection(ctx context.Context, requesterID, targetID string) (*connection.Edge, error) {
	ctx, span := s.tracer.Start(ctx, "ConnectionService.RequestConnection",
		trace.WithAttributes(
			attribute.String("requester_id", requesterID),
			attribute.String("target_id", targetID),
		))
	defer span.End()

	if requesterID == targetID {
		s.metrics.RecordConnectionRequest(OutcomeRejected)
		return nil, pkgerrors.NewSelfReferenceError("connect with")
	}

	requester, err := s.loadRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadActiveTarget(ctx, targetID); err != nil {
		s.metrics.RecordConnectionRequest(OutcomeRejected)
		return nil, err
	}

	// One instant decides both the quota window and the edge timestamp
	now := s.clock()
	reservation, err := s.quota.CheckAndReserve(ctx, requester, now)
	if err != nil {
		if pkgerrors.IsQuotaExceeded(err) {
			s.metrics.RecordConnectionRequest(OutcomeQuotaExceeded)
		}
		return nil, err
	}

	edge, err := connection.NewPendingEdge(uuid.New().String(), requesterID, targetID, now)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.edges.CreatePending(ctx, edge, reservation)
	s.metrics.RecordStoreLatency("create_pending_edge", time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, ports.ErrPairExists):
		s.metrics.RecordConnectionRequest(OutcomeAlreadyExists)
		return nil, pkgerrors.NewAlreadyExistsError("a connection already exists between these actors")
	case errors.Is(err, ports.ErrQuotaExhausted):
		s.metrics.RecordConnectionRequest(OutcomeQuotaExceeded)
		return nil, s.quota.Exceeded(reservation, now)
	default:
		s.metrics.RecordConnectionRequest(OutcomeError)
		span.RecordError(err)
		s.logger.Error("Failed to create connection request",
			zap.String("from", requesterID),
			zap.String("to", targetID),
			zap.Error(err),
		)
		return nil, pkgerrors.NewDatabaseError("create connection request", err)
	}

	s.metrics.RecordConnectionRequest(OutcomeCreated)
	s.logger.Info("Connection requested",
		zap.String("edge_id", edge.ID),
		zap.String("from", edge.FromActorID),
		zap.String("to", edge.ToActorID),
	)
	return edge, nil
}

// RespondToConnection applies the recipient's decision to a pending edge
func (s *ConnectionService) RespondToConnection(ctx context.Context, edgeID, responderID string, decision connection.EdgeType) (*connection.Edge, error) {
	ctx, span := s.tracer.Start(ctx, "ConnectionService.RespondToConnection",
		trace.WithAttributes(
			attribute.String("edge_id", edgeID),
			attribute.String("decision", string(decision)),
		))
	defer span.End()

	edge, err := s.edges.GetEdge(ctx, edgeID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, pkgerrors.NewNotFoundError("pending connection request")
		}
		return nil, pkgerrors.NewDatabaseError("get connection", err)
	}

	previous := edge.Type
	if err := edge.Respond(responderID, decision, s.clock()); err != nil {
		return nil, err
	}

	if err := s.edges.UpdateType(ctx, edge.ID, previous, edge.Type, edge.UpdatedAt); err != nil {
		if errors.Is(err, ports.ErrStaleState) {
			// Another response landed between our read and write
			current, getErr := s.edges.GetEdge(ctx, edgeID)
			from := "terminal"
			if getErr == nil {
				from = string(current.Type)
			}
			return nil, pkgerrors.NewInvalidTransitionError("connection", from, string(decision))
		}
		span.RecordError(err)
		return nil, pkgerrors.NewDatabaseError("update connection", err)
	}

	s.metrics.RecordConnectionResponse(string(decision))
	s.logger.Info("Connection answered",
		zap.String("edge_id", edge.ID),
		zap.String("from", edge.FromActorID),
		zap.String("to", edge.ToActorID),
		zap.String("type", string(edge.Type)),
	)
	return edge, nil
}

// GetStatus reports the relationship between two actors regardless of who initiated it
func (s *ConnectionService) GetStatus(ctx context.Context, a, b string) (*ConnectionStatus, error) {
	edge, err := s.edges.FindBetween(ctx, a, b)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return &ConnectionStatus{Status: connection.StatusNotConnected}, nil
		}
		return nil, pkgerrors.NewDatabaseError("find connection", err)
	}
	return &ConnectionStatus{
		Status:      string(edge.Type),
		EdgeID:      edge.ID,
		InitiatedBy: edge.FromActorID,
	}, nil
}

// ListNeighbors returns the actors connected to actorID. Browsing the network
// is a premium feature for the viewer.
func (s *ConnectionService) ListNeighbors(ctx context.Context, viewerID, actorID string) ([]Neighbor, error) {
	ctx, span := s.tracer.Start(ctx, "ConnectionService.ListNeighbors",
		trace.WithAttributes(attribute.String("actor_id", actorID)))
	defer span.End()

	viewer, err := s.loadRequester(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsPremium() {
		return nil, pkgerrors.NewPremiumRequiredError("browsing connections")
	}

	if actorID != viewerID {
		if _, err := s.actors.GetActor(ctx, actorID); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, pkgerrors.NewNotFoundError("actor")
			}
			return nil, pkgerrors.NewDatabaseError("get actor", err)
		}
	}

	edges, err := s.edges.ListConnected(ctx, actorID)
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.NewDatabaseError("list connections", err)
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.Other(actorID))
	}
	profiles, err := s.actors.GetActors(ctx, ids)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get actors", err)
	}

	neighbors := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		other := e.Other(actorID)
		summary := actor.Summary{ID: other}
		if p, ok := profiles[other]; ok {
			summary = p.Summarize()
		}
		neighbors = append(neighbors, Neighbor{
			Summary:        summary,
			EdgeID:         e.ID,
			ConnectedSince: e.UpdatedAt,
		})
	}
	return neighbors, nil
}

// ListIncoming returns pending requests addressed to the actor
func (s *ConnectionService) ListIncoming(ctx context.Context, actorID string) ([]IncomingRequest, error) {
	edges, err := s.edges.ListIncomingPending(ctx, actorID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list incoming requests", err)
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FromActorID)
	}
	profiles, err := s.actors.GetActors(ctx, ids)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get actors", err)
	}

	out := make([]IncomingRequest, 0, len(edges))
	for _, e := range edges {
		summary := actor.Summary{ID: e.FromActorID}
		if p, ok := profiles[e.FromActorID]; ok {
			summary = p.Summarize()
		}
		out = append(out, IncomingRequest{Edge: e, Requester: summary})
	}
	return out, nil
}

// Actor returns the directory entry for the caller
func (s *ConnectionService) Actor(ctx context.Context, id string) (*actor.Actor, error) {
	return s.loadRequester(ctx, id)
}

func (s *ConnectionService) loadRequester(ctx context.Context, id string) (*actor.Actor, error) {
	a, err := s.actors.GetActor(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, pkgerrors.NewUnauthorizedError("unknown actor")
		}
		return nil, pkgerrors.NewDatabaseError("get actor", err)
	}
	return a, nil
}

func (s *ConnectionService) loadActiveTarget(ctx context.Context, id string) (*actor.Actor, error) {
	a, err := s.actors.GetActor(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, pkgerrors.NewNotFoundError("actor")
		}
		return nil, pkgerrors.NewDatabaseError("get actor", err)
	}
	if !a.IsActive() {
		return nil, pkgerrors.NewNotFoundError("actor")
	}
	return a, nil
}
