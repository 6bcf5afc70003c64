package service

import (
	"context"
	"errors"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/repository"

	"github.com/cenkalti/backoff/v4"
)

type moderationService struct {
	store         repository.Store
	cascadeBudget time.Duration
	now           clock
}

// NewModerationService wires reports and blacklisting. cascadeBudget bounds
// how long an organization fan-out is retried before it is left to the
// resume job.
func NewModerationService(store repository.Store, cascadeBudget time.Duration) ModerationService {
	if cascadeBudget <= 0 {
		cascadeBudget = 30 * time.Second
	}
	return &moderationService{store: store, cascadeBudget: cascadeBudget, now: utcNow}
}

// SubmitReport files a complaint about the other party of a booking. The
// customer reports the caregiver; the caregiver or its organization admin
// reports the customer.
func (s *moderationService) SubmitReport(ctx context.Context, actor domain.Actor, bookingID, reason, description string) (*domain.Report, error) {
	logger.EnterMethod("moderationService.SubmitReport", "actorID", actor.AccountID, "bookingID", bookingID)

	reason, err := domain.RequireReason(reason)
	if err != nil {
		logger.ExitMethodWithError("moderationService.SubmitReport", err, "bookingID", bookingID)
		return nil, err
	}
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("moderationService.SubmitReport", err, "bookingID", bookingID)
		return nil, err
	}

	report := &domain.Report{
		ID:             newID(),
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		OrganizationID: booking.OrganizationID,
		ReportedBy:     actor.AccountID,
		Reason:         reason,
		Description:    description,
		Status:         domain.ReportStatusPending,
		CreatedAt:      s.now(),
	}
	switch {
	case actor.Role == domain.RoleCustomer && actor.AccountID == booking.UserID:
		report.SubjectType, report.SubjectID = domain.SubjectCaregiver, booking.CaregiverID
	case actor.Role == domain.RoleCaregiver && actor.AccountID == booking.CaregiverID,
		actor.AdministersOrg(booking.OrganizationID):
		report.SubjectType, report.SubjectID = domain.SubjectUser, booking.UserID
	default:
		err := domain.Errorf(domain.ErrForbidden, "account %s is not a party to booking %s", actor.AccountID, bookingID)
		logger.ExitMethodWithError("moderationService.SubmitReport", err, "bookingID", bookingID)
		return nil, err
	}

	if err := s.store.Blacklist().CreateReport(ctx, report); err != nil {
		logger.ExitMethodWithError("moderationService.SubmitReport", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("moderationService.SubmitReport", "reportID", report.ID, "subjectType", report.SubjectType)
	return report, nil
}

func (s *moderationService) adjudicable(ctx context.Context, actor domain.Actor, reportID string) (*domain.Report, error) {
	report, err := s.store.Blacklist().GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !report.CanAdjudicate(actor) {
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not adjudicate report %s", actor.AccountID, reportID)
	}
	if report.Status != domain.ReportStatusPending {
		return nil, domain.Errorf(domain.ErrInvalidTransition, "report %s is already %s", reportID, report.Status)
	}
	return report, nil
}

// ApproveReport turns a pending report into a blacklist entry. A reported
// caregiver is also flagged blacklisted and suspended in the same transaction.
func (s *moderationService) ApproveReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.BlacklistEntry, error) {
	logger.EnterMethod("moderationService.ApproveReport", "actorID", actor.AccountID, "reportID", reportID)

	report, err := s.adjudicable(ctx, actor, reportID)
	if err != nil {
		logger.ExitMethodWithError("moderationService.ApproveReport", err, "reportID", reportID)
		return nil, err
	}

	now := s.now()
	report.Status = domain.ReportStatusApproved
	report.ReviewedBy = actor.AccountID
	report.ReviewedAt = &now

	entry := &domain.BlacklistEntry{
		ID:             newID(),
		SubjectID:      report.SubjectID,
		SubjectType:    report.SubjectType,
		OrganizationID: report.OrganizationID,
		Reason:         report.Reason,
		Description:    report.Description,
		Source:         domain.EntrySourceReport,
		ReportID:       &report.ID,
		AddedAt:        now,
		ApprovedBy:     actor.AccountID,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Blacklist().UpdateReport(ctx, report); err != nil {
			return err
		}
		if _, err := tx.Blacklist().AddEntry(ctx, entry); err != nil {
			return err
		}
		if entry.SubjectType == domain.SubjectCaregiver {
			return tx.Caregivers().SetModeration(ctx, entry.SubjectID, true, true)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("moderationService.ApproveReport", err, "reportID", reportID)
		return nil, err
	}

	logger.ExitMethod("moderationService.ApproveReport", "reportID", reportID, "entryID", entry.ID)
	return entry, nil
}

func (s *moderationService) RejectReport(ctx context.Context, actor domain.Actor, reportID string) (*domain.Report, error) {
	report, err := s.adjudicable(ctx, actor, reportID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	report.Status = domain.ReportStatusRejected
	report.ReviewedBy = actor.AccountID
	report.ReviewedAt = &now
	if err := s.store.Blacklist().UpdateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// BlacklistCaregiver bypasses the report queue. An organization admin
// blacklists its own caregivers; a super admin may blacklist any caregiver.
func (s *moderationService) BlacklistCaregiver(ctx context.Context, actor domain.Actor, caregiverID, reason, description string) (*domain.BlacklistEntry, error) {
	logger.EnterMethod("moderationService.BlacklistCaregiver", "actorID", actor.AccountID, "caregiverID", caregiverID)

	reason, err := domain.RequireReason(reason)
	if err != nil {
		logger.ExitMethodWithError("moderationService.BlacklistCaregiver", err, "caregiverID", caregiverID)
		return nil, err
	}

	var entry *domain.BlacklistEntry
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		c, err := tx.Caregivers().GetByID(ctx, caregiverID)
		if err != nil {
			return err
		}
		entry = &domain.BlacklistEntry{
			ID:          newID(),
			SubjectID:   c.ID,
			SubjectType: domain.SubjectCaregiver,
			Reason:      reason,
			Description: description,
			AddedAt:     s.now(),
			ApprovedBy:  actor.AccountID,
		}
		switch {
		case actor.AdministersOrg(c.OrganizationID):
			entry.Source = domain.EntrySourceOrganization
			entry.OrganizationID = c.OrganizationID
		case actor.IsSuperAdmin():
			entry.Source = domain.EntrySourcePlatform
		default:
			return domain.Errorf(domain.ErrForbidden, "account %s may not blacklist caregiver %s", actor.AccountID, caregiverID)
		}
		if _, err := tx.Blacklist().AddEntry(ctx, entry); err != nil {
			return err
		}
		return tx.Caregivers().SetModeration(ctx, c.ID, true, true)
	})
	if err != nil {
		logger.ExitMethodWithError("moderationService.BlacklistCaregiver", err, "caregiverID", caregiverID)
		return nil, err
	}

	logger.ExitMethod("moderationService.BlacklistCaregiver", "caregiverID", caregiverID, "entryID", entry.ID)
	return entry, nil
}

// BlacklistOrganization flags the organization, records its entry and sets
// the cascade marker in one transaction, then fans out to every linked
// caregiver. A fan-out that runs out of retries leaves the marker for
// ResumeCascades and is reported as a warning.
func (s *moderationService) BlacklistOrganization(ctx context.Context, actor domain.Actor, orgID, reason string) (Result[*domain.BlacklistEntry], error) {
	logger.EnterMethod("moderationService.BlacklistOrganization", "actorID", actor.AccountID, "orgID", orgID)
	var res Result[*domain.BlacklistEntry]

	if !actor.IsSuperAdmin() {
		err := domain.Errorf(domain.ErrForbidden, "only a super admin can blacklist organizations")
		logger.ExitMethodWithError("moderationService.BlacklistOrganization", err, "orgID", orgID)
		return res, err
	}
	reason, err := domain.RequireReason(reason)
	if err != nil {
		logger.ExitMethodWithError("moderationService.BlacklistOrganization", err, "orgID", orgID)
		return res, err
	}

	entry := &domain.BlacklistEntry{
		ID:          newID(),
		SubjectID:   orgID,
		SubjectType: domain.SubjectOrganization,
		Reason:      reason,
		Source:      domain.EntrySourcePlatform,
		AddedAt:     s.now(),
		ApprovedBy:  actor.AccountID,
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		org, err := tx.Organizations().GetByID(ctx, orgID)
		if err != nil {
			return err
		}
		org.IsBlacklisted = true
		org.CascadePending = true
		if err := tx.Organizations().Update(ctx, org); err != nil {
			return err
		}
		_, err = tx.Blacklist().AddEntry(ctx, entry)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("moderationService.BlacklistOrganization", err, "orgID", orgID)
		return res, err
	}

	bestEffort("BlacklistOrganization", "cascade_to_caregivers", &res.Warnings, func() error {
		return s.cascade(ctx, orgID, reason, actor.AccountID)
	})

	res.Value = entry
	logger.ExitMethod("moderationService.BlacklistOrganization", "orgID", orgID, "entryID", entry.ID)
	return res, nil
}

var errCascadeStopped = errors.New("organization is no longer blacklisted")

// cascade blacklists every caregiver of orgID and clears the marker. Each
// caregiver step is idempotent, so the whole pass is retried from the start
// on failure.
func (s *moderationService) cascade(ctx context.Context, orgID, reason, approvedBy string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = s.cascadeBudget

	attempt := 0
	op := func() error {
		attempt++
		err := s.cascadeOnce(ctx, orgID, reason, approvedBy)
		switch {
		case err == nil, errors.Is(err, errCascadeStopped):
			return nil
		case errors.Is(err, domain.ErrNotFound):
			return backoff.Permanent(err)
		}
		logger.Warn("Blacklist cascade attempt failed", "orgID", orgID, "attempt", attempt, "error", err)
		return err
	}
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func (s *moderationService) cascadeOnce(ctx context.Context, orgID, reason, approvedBy string) error {
	members, err := s.store.Caregivers().List(ctx, repository.CaregiverFilter{OrganizationID: &orgID})
	if err != nil {
		return err
	}

	for _, c := range members {
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			org, err := tx.Organizations().GetByID(ctx, orgID)
			if err != nil {
				return err
			}
			if !org.IsBlacklisted {
				return errCascadeStopped
			}
			_, err = tx.Blacklist().AddEntry(ctx, &domain.BlacklistEntry{
				ID:             newID(),
				SubjectID:      c.ID,
				SubjectType:    domain.SubjectCaregiver,
				OrganizationID: &orgID,
				Reason:         reason,
				Source:         domain.EntrySourceCascade,
				CascadeOrgID:   &orgID,
				AddedAt:        s.now(),
				ApprovedBy:     approvedBy,
			})
			if err != nil {
				return err
			}
			return tx.Caregivers().SetModeration(ctx, c.ID, true, true)
		})
		if err != nil {
			return err
		}
	}

	return s.store.InTx(ctx, func(tx repository.Store) error {
		org, err := tx.Organizations().GetByID(ctx, orgID)
		if err != nil {
			return err
		}
		if !org.CascadePending {
			return nil
		}
		org.CascadePending = false
		return tx.Organizations().Update(ctx, org)
	})
}

// ResumeCascades completes organization fan-outs that were interrupted.
func (s *moderationService) ResumeCascades(ctx context.Context) (int, error) {
	pending, err := s.store.Organizations().ListCascadePending(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, org := range pending {
		reason, approvedBy := "organization blacklisted", "system"
		entries, err := s.store.Blacklist().ListEntries(ctx, repository.EntryFilter{
			SubjectType: domain.SubjectOrganization,
			SubjectID:   org.ID,
		})
		if err != nil {
			return done, err
		}
		if len(entries) > 0 {
			reason, approvedBy = entries[0].Reason, entries[0].ApprovedBy
		}
		if err := s.cascade(ctx, org.ID, reason, approvedBy); err != nil {
			logger.Error("Failed to resume blacklist cascade", "orgID", org.ID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// Unblacklist deletes an entry and lifts the flags it imposed, atomically.
// A caregiver stays flagged while any other entry names it. Removing an
// organization entry also removes the caregiver entries of its cascade.
func (s *moderationService) Unblacklist(ctx context.Context, actor domain.Actor, entryID string) error {
	logger.EnterMethod("moderationService.Unblacklist", "actorID", actor.AccountID, "entryID", entryID)

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		entry, err := tx.Blacklist().GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if !entry.CanRemove(actor) {
			return domain.Errorf(domain.ErrForbidden, "account %s may not remove entry %s", actor.AccountID, entryID)
		}
		if err := tx.Blacklist().DeleteEntry(ctx, entryID); err != nil {
			return err
		}

		switch entry.SubjectType {
		case domain.SubjectCaregiver:
			return releaseCaregiver(ctx, tx, entry.SubjectID)
		case domain.SubjectOrganization:
			remaining, err := tx.Blacklist().CountEntries(ctx, domain.SubjectOrganization, entry.SubjectID)
			if err != nil {
				return err
			}
			if remaining > 0 {
				return nil
			}
			org, err := tx.Organizations().GetByID(ctx, entry.SubjectID)
			switch {
			case err == nil:
				org.IsBlacklisted = false
				org.CascadePending = false
				if err := tx.Organizations().Update(ctx, org); err != nil {
					return err
				}
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
			subjects, err := tx.Blacklist().DeleteCascadeEntries(ctx, entry.SubjectID)
			if err != nil {
				return err
			}
			for _, id := range subjects {
				if err := releaseCaregiver(ctx, tx, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("moderationService.Unblacklist", err, "entryID", entryID)
		return err
	}

	logger.ExitMethod("moderationService.Unblacklist", "entryID", entryID)
	return nil
}

// releaseCaregiver clears the moderation flags once no entry names the
// caregiver. A caregiver deleted in the meantime needs nothing.
func releaseCaregiver(ctx context.Context, tx repository.Store, caregiverID string) error {
	remaining, err := tx.Blacklist().CountEntries(ctx, domain.SubjectCaregiver, caregiverID)
	if err != nil || remaining > 0 {
		return err
	}
	err = tx.Caregivers().SetModeration(ctx, caregiverID, false, false)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *moderationService) ListReports(ctx context.Context, actor domain.Actor, status domain.ReportStatus) ([]domain.Report, error) {
	filter := repository.ReportFilter{Status: status}
	switch {
	case actor.IsSuperAdmin():
	case actor.Role == domain.RoleOrgAdmin:
		orgID := actor.AccountID
		filter.OrganizationID = &orgID
	default:
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not list reports", actor.AccountID)
	}
	return s.store.Blacklist().ListReports(ctx, filter)
}

func (s *moderationService) ListBlacklist(ctx context.Context, actor domain.Actor, subjectType domain.SubjectType) ([]domain.BlacklistEntry, error) {
	if subjectType != "" && !subjectType.Valid() {
		return nil, domain.Errorf(domain.ErrValidation, "unknown subject type %q", subjectType)
	}
	filter := repository.EntryFilter{SubjectType: subjectType}
	switch {
	case actor.IsSuperAdmin():
	case actor.Role == domain.RoleOrgAdmin:
		orgID := actor.AccountID
		filter.OrganizationID = &orgID
	default:
		return nil, domain.Errorf(domain.ErrForbidden, "account %s may not list the blacklist", actor.AccountID)
	}
	return s.store.Blacklist().ListEntries(ctx, filter)
}
