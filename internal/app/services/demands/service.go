// Package demandsvc owns the demand lifecycle: it enforces legal status
// transitions, drives contract creation and emits the side effects of each
// transition (audit trail, notifications, stats invalidation).
//
// Transitions are conditional writes on the expected status, so two admins
// acting on the same demand cannot both succeed. Conversion is a resumable
// saga: approving a demand sets a conversion claim together with the
// APPROVED status, the contract is created, then the demand moves to
// CONVERTED and the claim is cleared. A claim left behind by a crash is
// picked up by RecoverStale once it is older than Options.ConversionStaleAfter.
package demandsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auditlog"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/searchtext"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Repository persists demands of one domain.
type Repository interface {
	Domain() models.Domain
	Create(ctx context.Context, d models.Demand, matricule string) (models.Demand, error)
	GetByID(ctx context.Context, id string) (models.Demand, error)
	GetByContractID(ctx context.Context, contractID string) (models.Demand, error)
	GetDemandsWithFilters(ctx context.Context, f demandstore.Filters) (demandstore.Page, error)
	GetDemandsStats(ctx context.Context, f demandstore.Filters) demandstore.Stats
	UpdateDemand(ctx context.Context, id string, u demandstore.Update) (models.Demand, error)
	UpdateDemandStatus(ctx context.Context, id string, expected models.DemandStatus, u demandstore.Update) (models.Demand, error)
	ClaimConversion(ctx context.Context, id, actorID string, staleBefore time.Time) (models.Demand, error)
	ListStaleConversions(ctx context.Context, staleBefore time.Time, limit int64) ([]models.Demand, error)
	Delete(ctx context.Context, id string) error
}

// MemberLookup resolves members. A missing member is (nil, nil).
type MemberLookup interface {
	GetMemberByID(ctx context.Context, id string) (*models.Member, error)
}

// AdminLookup resolves administrators for display names. A missing
// administrator is (nil, nil).
type AdminLookup interface {
	GetAdminByID(ctx context.Context, id string) (*models.Admin, error)
}

// ContractCreator creates the contract for an approved demand.
type ContractCreator interface {
	CreateContract(ctx context.Context, terms models.ContractTerms) (string, error)
}

// SettingsLookup finds the active product settings. None active is (nil, nil).
type SettingsLookup interface {
	GetActive(ctx context.Context, domain models.Domain, caisseType string) (*models.ProductSettings, error)
}

// Publisher hands notifications to the delivery pipeline. It never fails
// from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification)
}

// StatsCache serves demand statistics. load is called on a miss.
type StatsCache interface {
	Get(ctx context.Context, domain models.Domain, f demandstore.Filters, load func(context.Context) demandstore.Stats) demandstore.Stats
	Invalidate(ctx context.Context, domain models.Domain)
}

// Deps are the collaborators of a Service. Stats and Audit may be nil.
type Deps struct {
	Repo      Repository
	Members   MemberLookup
	Admins    AdminLookup
	Contracts ContractCreator
	Settings  SettingsLookup
	Publisher Publisher
	Stats     StatsCache
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

// Options tune a Service.
type Options struct {
	// ConversionStaleAfter is how old a conversion claim must be before
	// another caller may take it over.
	ConversionStaleAfter time.Duration
	Now                  func() time.Time
}

// DefaultConversionStaleAfter applies when Options leaves it unset.
const DefaultConversionStaleAfter = 5 * time.Minute

// Service runs the demand lifecycle for one domain.
type Service struct {
	repo      Repository
	members   MemberLookup
	admins    AdminLookup
	contracts ContractCreator
	settings  SettingsLookup
	publisher Publisher
	stats     StatsCache
	audit     *auditlog.Logger
	log       *zap.Logger

	staleAfter time.Duration
	now        func() time.Time
}

func New(deps Deps, opts Options) *Service {
	if opts.ConversionStaleAfter <= 0 {
		opts.ConversionStaleAfter = DefaultConversionStaleAfter
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Service{
		repo:       deps.Repo,
		members:    deps.Members,
		admins:     deps.Admins,
		contracts:  deps.Contracts,
		settings:   deps.Settings,
		publisher:  deps.Publisher,
		stats:      deps.Stats,
		audit:      deps.Audit,
		log:        deps.Log.With(zap.String("domain", string(deps.Repo.Domain()))),
		staleAfter: opts.ConversionStaleAfter,
		now:        opts.Now,
	}
}

// Domain returns the domain served by s.
func (s *Service) Domain() models.Domain { return s.repo.Domain() }

// Registry holds one Service per domain.
type Registry map[models.Domain]*Service

// For returns the service of domain, or false if none is registered.
func (r Registry) For(domain models.Domain) (*Service, bool) {
	svc, ok := r[domain]
	return svc, ok
}

// CreateInput is the caller-supplied part of a new demand.
type CreateInput struct {
	MemberID     string             `json:"member_id"`
	GroupID      string             `json:"group_id,omitempty"`
	ContractType string             `json:"contract_type,omitempty"`
	CaisseType   string             `json:"caisse_type,omitempty"`
	Terms        models.DemandTerms `json:"terms"`
}

// Create records a new PENDING demand for an existing member and tells the
// administrators about it.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID string) (models.Demand, error) {
	memberID := strings.TrimSpace(in.MemberID)
	if memberID == "" {
		return models.Demand{}, fmt.Errorf("%w: member_id is required", ErrValidation)
	}

	member, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return models.Demand{}, &InfrastructureError{Op: "get member", Err: err}
	}
	if member == nil {
		return models.Demand{}, fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}

	now := s.now()
	keys := searchtext.Build(member.LastName, member.FirstName, member.Matricule)
	actor := s.actor(ctx, actorID)

	d, err := s.repo.Create(ctx, models.Demand{
		Status:            models.DemandPending,
		MemberID:          memberID,
		GroupID:           in.GroupID,
		ContractType:      in.ContractType,
		CaisseType:        in.CaisseType,
		Terms:             in.Terms,
		SearchByLastName:  keys.ByLastName,
		SearchByFirstName: keys.ByFirstName,
		SearchByMatricule: keys.ByMatricule,
		History: []models.AuditEvent{{
			Action:    models.ActionCreated,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			ToStatus:  models.DemandPending,
			At:        now,
		}},
		CreatedBy: actorID,
	}, member.Matricule)
	if err != nil {
		return models.Demand{}, storeErr("create demand", "", err)
	}

	s.audit.DemandCreated(ctx, d, actor)
	s.invalidate(ctx)
	s.notify(ctx, d, models.NotifyNewRequest, models.AudienceAdmins,
		"New request",
		fmt.Sprintf("%s submitted a new %s request.", member.FullName(), humanDomain(d.Domain)),
		nil)
	return d, nil
}

// GetByID returns one demand.
func (s *Service) GetByID(ctx context.Context, id string) (models.Demand, error) {
	d, err := s.repo.GetByID(ctx, id)
	return d, storeErr("get demand", id, err)
}

// GetByContractID returns the demand that produced contractID.
func (s *Service) GetByContractID(ctx context.Context, contractID string) (models.Demand, error) {
	d, err := s.repo.GetByContractID(ctx, contractID)
	if err != nil {
		return models.Demand{}, storeErr("get demand by contract", "for contract "+contractID, err)
	}
	return d, nil
}

// List returns one page of demands matching f.
func (s *Service) List(ctx context.Context, f demandstore.Filters) (demandstore.Page, error) {
	page, err := s.repo.GetDemandsWithFilters(ctx, f)
	if err != nil {
		return demandstore.Page{}, &InfrastructureError{Op: "list demands", Err: err}
	}
	return page, nil
}

// Stats returns per-status counts. Failures degrade to zero counts.
func (s *Service) Stats(ctx context.Context, f demandstore.Filters) demandstore.Stats {
	load := func(ctx context.Context) demandstore.Stats {
		return s.repo.GetDemandsStats(ctx, f)
	}
	if s.stats == nil {
		return load(ctx)
	}
	return s.stats.Get(ctx, s.Domain(), f, load)
}

// actor resolves the display name of actorID, falling back to the id.
func (s *Service) actor(ctx context.Context, actorID string) auditlog.Actor {
	a := auditlog.Actor{ID: actorID, Name: actorID}
	if s.admins == nil || actorID == "" || actorID == models.SystemActorID {
		return a
	}
	admin, err := s.admins.GetAdminByID(ctx, actorID)
	if err != nil {
		s.log.Warn("admin lookup failed; using id as name",
			zap.String("actor_id", actorID), zap.Error(err))
		return a
	}
	if admin != nil {
		if name := admin.DisplayName(); name != "" {
			a.Name = name
		}
	}
	return a
}

func (s *Service) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, s.Domain())
	}
}

func (s *Service) notify(ctx context.Context, d models.Demand, kind, audience, title, message string, extra map[string]string) {
	if s.publisher == nil {
		return
	}
	meta := map[string]string{
		"demand_id": d.ID,
		"status":    string(d.Status),
		"member_id": d.MemberID,
	}
	for k, v := range extra {
		meta[k] = v
	}
	s.publisher.Publish(ctx, models.Notification{
		Module:   string(d.Domain),
		EntityID: d.ID,
		Type:     kind,
		Audience: audience,
		Title:    title,
		Message:  message,
		Metadata: meta,
	})
}

func humanDomain(d models.Domain) string {
	switch d {
	case models.DomainSpecialSavings:
		return "special savings"
	case models.DomainEmergency:
		return "emergency fund"
	case models.DomainPlacement:
		return "placement"
	}
	return string(d)
}
