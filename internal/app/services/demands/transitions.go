package demandsvc

import (
	"context"
	"errors"
	"fmt"

	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auditlog"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Approve moves a PENDING demand to APPROVED and immediately converts it.
//
// If contract creation fails the demand stays APPROVED without a contract,
// conversion_error records the cause and the collaborator error is returned.
// Convert can be retried later.
func (s *Service) Approve(ctx context.Context, id, actorID, reason string) (models.Demand, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Demand{}, err
	}
	if d.Status != models.DemandPending {
		return models.Demand{}, fmt.Errorf("%w: cannot approve demand %s in status %s", ErrInvalidTransition, id, d.Status)
	}
	if d.MemberID == "" {
		return models.Demand{}, fmt.Errorf("%w: demand %s has no member", ErrInvalidState, id)
	}

	actor := s.actor(ctx, actorID)
	now := s.now()
	approved, err := s.repo.UpdateDemandStatus(ctx, id, models.DemandPending, demandstore.Update{
		Set: map[string]any{
			"status":                models.DemandApproved,
			"decision_made_by":      actor.ID,
			"decision_made_by_name": actor.Name,
			"decision_made_at":      now,
			"decision_reason":       reason,
			"conversion_started_at": now,
		},
		Unset: []string{"conversion_error"},
		Push: []models.AuditEvent{{
			Action:     models.ActionApproved,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Reason:     reason,
			FromStatus: models.DemandPending,
			ToStatus:   models.DemandApproved,
			At:         now,
		}},
		UpdatedBy: actor.ID,
	})
	if err != nil {
		return models.Demand{}, storeErr("approve demand", id, err)
	}

	s.audit.DemandApproved(ctx, approved, actor)
	s.invalidate(ctx)
	s.notify(ctx, approved, models.NotifyDemandApproved, models.MemberAudience(approved.MemberID),
		"Request approved",
		fmt.Sprintf("Your %s request was approved by %s.", humanDomain(approved.Domain), actor.Name),
		nil)

	converted, _, err := s.finishConversion(ctx, approved, actor, "")
	if err != nil {
		return models.Demand{}, err
	}
	return converted, nil
}

// Reject moves a PENDING demand to REJECTED.
func (s *Service) Reject(ctx context.Context, id, actorID, reason string) (models.Demand, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Demand{}, err
	}
	if d.Status != models.DemandPending {
		return models.Demand{}, fmt.Errorf("%w: cannot reject demand %s in status %s", ErrInvalidTransition, id, d.Status)
	}

	actor := s.actor(ctx, actorID)
	now := s.now()
	rejected, err := s.repo.UpdateDemandStatus(ctx, id, models.DemandPending, demandstore.Update{
		Set: map[string]any{
			"status":                models.DemandRejected,
			"decision_made_by":      actor.ID,
			"decision_made_by_name": actor.Name,
			"decision_made_at":      now,
			"decision_reason":       reason,
		},
		Push: []models.AuditEvent{{
			Action:     models.ActionRejected,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Reason:     reason,
			FromStatus: models.DemandPending,
			ToStatus:   models.DemandRejected,
			At:         now,
		}},
		UpdatedBy: actor.ID,
	})
	if err != nil {
		return models.Demand{}, storeErr("reject demand", id, err)
	}

	s.audit.DemandRejected(ctx, rejected, actor)
	s.invalidate(ctx)

	msg := fmt.Sprintf("The %s request was rejected: %s", humanDomain(rejected.Domain), reason)
	s.notify(ctx, rejected, models.NotifyDemandRejected, models.MemberAudience(rejected.MemberID),
		"Request rejected", msg, map[string]string{"reason": reason})
	if s.notifyRequester(rejected, actor.ID) {
		s.notify(ctx, rejected, models.NotifyDemandRejected, models.UserAudience(rejected.CreatedBy),
			"Request rejected", msg, map[string]string{"reason": reason})
	}
	return rejected, nil
}

// Reopen moves a REJECTED demand back to PENDING. The previous decision
// fields are kept.
func (s *Service) Reopen(ctx context.Context, id, actorID, reason string) (models.Demand, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Demand{}, err
	}
	if d.Status != models.DemandRejected {
		return models.Demand{}, fmt.Errorf("%w: cannot reopen demand %s in status %s", ErrInvalidTransition, id, d.Status)
	}

	actor := s.actor(ctx, actorID)
	now := s.now()
	reopened, err := s.repo.UpdateDemandStatus(ctx, id, models.DemandRejected, demandstore.Update{
		Set: map[string]any{
			"status":           models.DemandPending,
			"reopened_by":      actor.ID,
			"reopened_by_name": actor.Name,
			"reopened_at":      now,
			"reopen_reason":    reason,
		},
		Push: []models.AuditEvent{{
			Action:     models.ActionReopened,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Reason:     reason,
			FromStatus: models.DemandRejected,
			ToStatus:   models.DemandPending,
			At:         now,
		}},
		UpdatedBy: actor.ID,
	})
	if err != nil {
		return models.Demand{}, storeErr("reopen demand", id, err)
	}

	s.audit.DemandReopened(ctx, reopened, actor)
	s.invalidate(ctx)

	meta := map[string]string{"reason": reason}
	s.notify(ctx, reopened, models.NotifyDemandReopened, models.MemberAudience(reopened.MemberID),
		"Request reopened",
		fmt.Sprintf("Your %s request is under review again.", humanDomain(reopened.Domain)),
		meta)
	s.notify(ctx, reopened, models.NotifyDemandReopened, models.AudienceAdmins,
		"Request reopened",
		fmt.Sprintf("%s reopened a %s request: %s", actor.Name, humanDomain(reopened.Domain), reason),
		meta)
	return reopened, nil
}

// Convert creates the contract of an APPROVED demand and moves it to
// CONVERTED. It returns the updated demand and the new contract id.
func (s *Service) Convert(ctx context.Context, id, actorID string) (models.Demand, string, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Demand{}, "", err
	}
	if d.HasContract() || d.Status == models.DemandConverted {
		return models.Demand{}, "", fmt.Errorf("%w: demand %s", ErrAlreadyConverted, id)
	}
	if d.Status != models.DemandApproved {
		return models.Demand{}, "", fmt.Errorf("%w: cannot convert demand %s in status %s", ErrInvalidTransition, id, d.Status)
	}
	if d.MemberID == "" {
		return models.Demand{}, "", fmt.Errorf("%w: demand %s has no member", ErrInvalidState, id)
	}

	settings, err := s.settings.GetActive(ctx, d.Domain, d.CaisseType)
	if err != nil {
		return models.Demand{}, "", &InfrastructureError{Op: "get active settings", Err: err}
	}
	if settings == nil {
		return models.Demand{}, "", fmt.Errorf("%w: no active %s settings for caisse type %q",
			ErrConfiguration, d.Domain, d.CaisseType)
	}

	actor := s.actor(ctx, actorID)
	claimed, err := s.repo.ClaimConversion(ctx, id, actor.ID, s.now().Add(-s.staleAfter))
	if err != nil {
		return models.Demand{}, "", storeErr("claim conversion", id, err)
	}
	return s.finishConversion(ctx, claimed, actor, settings.ID)
}

// finishConversion runs the last two steps of a conversion for a demand
// whose claim is held: create the contract, then record it on the demand.
func (s *Service) finishConversion(ctx context.Context, d models.Demand, actor auditlog.Actor, settingsID string) (models.Demand, string, error) {
	contractID, err := s.contracts.CreateContract(ctx, contractTerms(d, actor, settingsID))
	if err != nil {
		s.releaseClaim(ctx, d, actor, err)
		return models.Demand{}, "", fmt.Errorf("create contract for demand %s: %w", d.ID, err)
	}

	now := s.now()
	converted, err := s.repo.UpdateDemandStatus(ctx, d.ID, models.DemandApproved, demandstore.Update{
		Set: map[string]any{
			"status":            models.DemandConverted,
			"contract_id":       contractID,
			"converted_by":      actor.ID,
			"converted_by_name": actor.Name,
			"converted_at":      now,
		},
		Unset: []string{"conversion_started_at", "conversion_error"},
		Push: []models.AuditEvent{{
			Action:     models.ActionConverted,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			FromStatus: models.DemandApproved,
			ToStatus:   models.DemandConverted,
			ContractID: contractID,
			At:         now,
		}},
		UpdatedBy: actor.ID,
	})
	if err != nil {
		s.log.Error("contract created but demand not converted",
			zap.String("demand_id", d.ID),
			zap.String("contract_id", contractID),
			zap.Error(err))
		return models.Demand{}, "", storeErr("convert demand", d.ID, err)
	}

	s.audit.DemandConverted(ctx, converted, actor, contractID)
	s.invalidate(ctx)

	meta := map[string]string{"contract_id": contractID}
	msg := fmt.Sprintf("The %s contract %s was created.", humanDomain(converted.Domain), contractID)
	s.notify(ctx, converted, models.NotifyContractCreated, models.MemberAudience(converted.MemberID),
		"Contract created", msg, meta)
	if s.notifyRequester(converted, actor.ID) {
		s.notify(ctx, converted, models.NotifyContractCreated, models.UserAudience(converted.CreatedBy),
			"Contract created", msg, meta)
	}
	return converted, contractID, nil
}

// releaseClaim clears the conversion claim after a failed contract creation
// so the demand can be converted again right away.
func (s *Service) releaseClaim(ctx context.Context, d models.Demand, actor auditlog.Actor, cause error) {
	_, err := s.repo.UpdateDemandStatus(ctx, d.ID, models.DemandApproved, demandstore.Update{
		Set:   map[string]any{"conversion_error": cause.Error()},
		Unset: []string{"conversion_started_at"},
		Push: []models.AuditEvent{{
			Action:     models.ActionConversionFailed,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Reason:     cause.Error(),
			FromStatus: models.DemandApproved,
			ToStatus:   models.DemandApproved,
			At:         s.now(),
		}},
		UpdatedBy: actor.ID,
	})
	if err != nil {
		s.log.Error("failed to release conversion claim",
			zap.String("demand_id", d.ID), zap.Error(err))
	}

	s.audit.DemandConversionFailed(ctx, d, actor, cause)
	s.invalidate(ctx)
	s.notify(ctx, d, models.NotifyConversionFailed, models.AudienceAdmins,
		"Contract creation failed",
		fmt.Sprintf("The contract for %s request %s could not be created: %v", humanDomain(d.Domain), d.ID, cause),
		map[string]string{"error": cause.Error()})
}

// Delete removes a demand. Converted demands are kept because their
// contract points back at them.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status == models.DemandConverted && d.HasContract() {
		return fmt.Errorf("%w: demand %s has contract %s", ErrConflict, id, *d.ContractID)
	}
	if d.ConversionStartedAt != nil {
		return fmt.Errorf("%w: demand %s is being converted", ErrConflict, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr("delete demand", id, err)
	}

	s.audit.DemandDeleted(ctx, d, s.actor(ctx, actorID))
	s.invalidate(ctx)
	return nil
}

// RecoverStale finishes conversions whose claim is older than the stale
// threshold, usually left behind by a crash between contract creation and
// the final write. It returns how many demands were converted.
func (s *Service) RecoverStale(ctx context.Context, limit int64) (int, error) {
	stale, err := s.repo.ListStaleConversions(ctx, s.now().Add(-s.staleAfter), limit)
	if err != nil {
		return 0, &InfrastructureError{Op: "list stale conversions", Err: err}
	}

	recovered := 0
	for _, d := range stale {
		if ctx.Err() != nil {
			return recovered, ctx.Err()
		}
		converted, contractID, err := s.Convert(ctx, d.ID, models.SystemActorID)
		if err != nil {
			lvl := s.log.Warn
			if errors.Is(err, ErrConfiguration) {
				lvl = s.log.Error
			}
			lvl("conversion recovery failed",
				zap.String("demand_id", d.ID), zap.Error(err))
			continue
		}
		s.audit.ConversionRecovered(ctx, converted, contractID)
		recovered++
	}
	return recovered, nil
}

func (s *Service) notifyRequester(d models.Demand, actorID string) bool {
	return d.CreatedBy != "" && d.CreatedBy != actorID && d.CreatedBy != models.SystemActorID
}

func contractTerms(d models.Demand, actor auditlog.Actor, settingsID string) models.ContractTerms {
	return models.ContractTerms{
		Domain:           d.Domain,
		DemandID:         d.ID,
		MemberID:         d.MemberID,
		GroupID:          d.GroupID,
		ContractType:     d.ContractType,
		CaisseType:       d.CaisseType,
		Amount:           d.Terms.Amount,
		MonthlyAmount:    d.Terms.MonthlyAmount,
		DurationMonths:   d.Terms.DurationMonths,
		StartDate:        d.Terms.DesiredDate,
		PaymentFrequency: d.Terms.PaymentFrequency,
		EmergencyContact: d.Terms.EmergencyContact,
		SettingsID:       settingsID,
		CreatedBy:        actor.ID,
	}
}
