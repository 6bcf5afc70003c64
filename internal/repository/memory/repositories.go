package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/repository"

	"github.com/shopspring/decimal"
)

func now() time.Time { return time.Now().UTC() }

func notFound(what, id string) error {
	return domain.Errorf(domain.ErrNotFound, "%s %s not found", what, id)
}

func sameOrg(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type accountRepository struct{ *Store }

func (r accountRepository) Create(_ context.Context, a *domain.Account) error {
	defer r.lock()()
	if _, ok := r.db.st.accounts[a.ID]; ok {
		return domain.Errorf(domain.ErrConflict, "account %s already exists", a.ID)
	}
	t := now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t
	}
	a.UpdatedAt = t
	r.db.st.accounts[a.ID] = *a
	return nil
}

func (r accountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	defer r.lock()()
	a, ok := r.db.st.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	return &a, nil
}

func (r accountRepository) Update(_ context.Context, a *domain.Account) error {
	defer r.lock()()
	if _, ok := r.db.st.accounts[a.ID]; !ok {
		return notFound("account", a.ID)
	}
	a.UpdatedAt = now()
	r.db.st.accounts[a.ID] = *a
	return nil
}

func (r accountRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.db.st.accounts[id]; !ok {
		return notFound("account", id)
	}
	delete(r.db.st.accounts, id)
	return nil
}

func (r accountRepository) CountByRole(_ context.Context, role domain.Role) (int, error) {
	defer r.lock()()
	n := 0
	for _, a := range r.db.st.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

// LockBootstrap is a no-op: InTx already holds the store-wide lock.
func (r accountRepository) LockBootstrap(context.Context) error { return nil }

type organizationRepository struct{ *Store }

func (r organizationRepository) withCount(o domain.Organization) domain.Organization {
	o.TotalCaregivers = 0
	for _, c := range r.db.st.caregivers {
		if c.OrganizationID != nil && *c.OrganizationID == o.ID {
			o.TotalCaregivers++
		}
	}
	return o
}

func (r organizationRepository) Create(_ context.Context, o *domain.Organization) error {
	defer r.lock()()
	if _, ok := r.db.st.organizations[o.ID]; ok {
		return domain.Errorf(domain.ErrConflict, "organization %s already exists", o.ID)
	}
	t := now()
	o.CreatedAt, o.UpdatedAt = t, t
	r.db.st.organizations[o.ID] = *o
	return nil
}

func (r organizationRepository) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	defer r.lock()()
	o, ok := r.db.st.organizations[id]
	if !ok {
		return nil, notFound("organization", id)
	}
	o = r.withCount(o)
	return &o, nil
}

func (r organizationRepository) list(keep func(domain.Organization) bool) []domain.Organization {
	var out []domain.Organization
	for _, o := range r.db.st.organizations {
		if keep(o) {
			out = append(out, r.withCount(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r organizationRepository) List(_ context.Context, f repository.OrganizationFilter) ([]domain.Organization, error) {
	defer r.lock()()
	return r.list(func(o domain.Organization) bool {
		return !f.ApprovedOnly || (o.IsApproved && !o.IsBlacklisted)
	}), nil
}

func (r organizationRepository) ListCascadePending(context.Context) ([]domain.Organization, error) {
	defer r.lock()()
	return r.list(func(o domain.Organization) bool { return o.CascadePending }), nil
}

func (r organizationRepository) Update(_ context.Context, o *domain.Organization) error {
	defer r.lock()()
	stored, ok := r.db.st.organizations[o.ID]
	if !ok {
		return notFound("organization", o.ID)
	}
	o.UpdatedAt = now()
	o.TotalBookings, o.TotalEarnings, o.CreatedAt = stored.TotalBookings, stored.TotalEarnings, stored.CreatedAt
	r.db.st.organizations[o.ID] = *o
	return nil
}

func (r organizationRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.db.st.organizations[id]; !ok {
		return notFound("organization", id)
	}
	delete(r.db.st.organizations, id)
	for cid, c := range r.db.st.caregivers {
		if c.OrganizationID != nil && *c.OrganizationID == id {
			c.OrganizationID = nil
			r.db.st.caregivers[cid] = c
		}
	}
	for sid, s := range r.db.st.services {
		if s.OrganizationID != nil && *s.OrganizationID == id {
			delete(r.db.st.services, sid)
		}
	}
	return nil
}

func (r organizationRepository) AddCounters(_ context.Context, id string, bookings int, earnings int64) error {
	defer r.lock()()
	o, ok := r.db.st.organizations[id]
	if !ok {
		return notFound("organization", id)
	}
	o.TotalBookings += bookings
	o.TotalEarnings += earnings
	o.UpdatedAt = now()
	r.db.st.organizations[id] = o
	return nil
}

type caregiverRepository struct{ *Store }

func cloneCaregiver(c domain.Caregiver) domain.Caregiver {
	c.Shifts = slices.Clone(c.Shifts)
	c.ServicesOffered = slices.Clone(c.ServicesOffered)
	return c
}

func (r caregiverRepository) Create(_ context.Context, c *domain.Caregiver) error {
	defer r.lock()()
	if _, ok := r.db.st.caregivers[c.ID]; ok {
		return domain.Errorf(domain.ErrConflict, "caregiver %s already exists", c.ID)
	}
	t := now()
	c.CreatedAt, c.UpdatedAt = t, t
	r.db.st.caregivers[c.ID] = cloneCaregiver(*c)
	return nil
}

func (r caregiverRepository) GetByID(_ context.Context, id string) (*domain.Caregiver, error) {
	defer r.lock()()
	c, ok := r.db.st.caregivers[id]
	if !ok {
		return nil, notFound("caregiver", id)
	}
	c = cloneCaregiver(c)
	return &c, nil
}

// orgBlacklisted expects the store lock to be held.
func (r caregiverRepository) orgBlacklisted(orgID *string) bool {
	if orgID == nil {
		return false
	}
	o, ok := r.db.st.organizations[*orgID]
	return ok && o.IsBlacklisted
}

func (r caregiverRepository) List(_ context.Context, f repository.CaregiverFilter) ([]domain.Caregiver, error) {
	defer r.lock()()
	var out []domain.Caregiver
	for _, c := range r.db.st.caregivers {
		if f.OrganizationID != nil && (c.OrganizationID == nil || *c.OrganizationID != *f.OrganizationID) {
			continue
		}
		if f.ListableOnly && (!c.Listable() || r.orgBlacklisted(c.OrganizationID)) {
			continue
		}
		if f.Category != "" && !c.Category.Covers(f.Category) {
			continue
		}
		if f.ServiceID != "" && !slices.Contains(c.ServicesOffered, f.ServiceID) {
			continue
		}
		out = append(out, cloneCaregiver(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r caregiverRepository) Update(_ context.Context, c *domain.Caregiver) error {
	defer r.lock()()
	stored, ok := r.db.st.caregivers[c.ID]
	if !ok {
		return notFound("caregiver", c.ID)
	}
	c.UpdatedAt = now()
	next := cloneCaregiver(*c)
	// counters and moderation flags are owned by their own operations
	next.JobsCompleted, next.TotalEarnings, next.PendingEarnings = stored.JobsCompleted, stored.TotalEarnings, stored.PendingEarnings
	next.IsBlacklisted, next.IsSuspended, next.CreatedAt = stored.IsBlacklisted, stored.IsSuspended, stored.CreatedAt
	r.db.st.caregivers[c.ID] = next
	return nil
}

func (r caregiverRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.db.st.caregivers[id]; !ok {
		return notFound("caregiver", id)
	}
	delete(r.db.st.caregivers, id)
	return nil
}

func (r caregiverRepository) ApplyEarnings(_ context.Context, id string, d domain.EarningsDelta) error {
	defer r.lock()()
	c, ok := r.db.st.caregivers[id]
	if !ok {
		return notFound("caregiver", id)
	}
	c.JobsCompleted += d.JobsCompleted
	c.TotalEarnings += d.TotalEarnings
	c.PendingEarnings += d.PendingEarnings
	c.UpdatedAt = now()
	r.db.st.caregivers[id] = c
	return nil
}

func (r caregiverRepository) SetBalance(_ context.Context, id string, b domain.Balance) error {
	defer r.lock()()
	c, ok := r.db.st.caregivers[id]
	if !ok {
		return notFound("caregiver", id)
	}
	c.JobsCompleted, c.TotalEarnings, c.PendingEarnings = b.JobsCompleted, b.TotalEarnings, b.PendingEarnings
	c.UpdatedAt = now()
	r.db.st.caregivers[id] = c
	return nil
}

func (r caregiverRepository) SetModeration(_ context.Context, id string, blacklisted, suspended bool) error {
	defer r.lock()()
	c, ok := r.db.st.caregivers[id]
	if !ok {
		return notFound("caregiver", id)
	}
	c.IsBlacklisted, c.IsSuspended = blacklisted, suspended
	c.UpdatedAt = now()
	r.db.st.caregivers[id] = c
	return nil
}

type serviceRepository struct{ *Store }

func (r serviceRepository) Create(_ context.Context, s *domain.Service) error {
	defer r.lock()()
	t := now()
	s.CreatedAt, s.UpdatedAt = t, t
	r.db.st.services[s.ID] = *s
	return nil
}

func (r serviceRepository) GetByID(_ context.Context, id string) (*domain.Service, error) {
	defer r.lock()()
	s, ok := r.db.st.services[id]
	if !ok {
		return nil, notFound("service", id)
	}
	return &s, nil
}

func (r serviceRepository) Update(_ context.Context, s *domain.Service) error {
	defer r.lock()()
	stored, ok := r.db.st.services[s.ID]
	if !ok {
		return notFound("service", s.ID)
	}
	stored.Label, stored.Category, stored.UpdatedAt = s.Label, s.Category, now()
	r.db.st.services[s.ID] = stored
	*s = stored
	return nil
}

func (r serviceRepository) List(_ context.Context, orgID *string) ([]domain.Service, error) {
	defer r.lock()()
	var out []domain.Service
	for _, s := range r.db.st.services {
		if s.OrganizationID == nil || (orgID != nil && sameOrg(s.OrganizationID, orgID)) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

type bookingRepository struct{ *Store }

func (r bookingRepository) Create(_ context.Context, b *domain.Booking) error {
	defer r.lock()()
	if _, ok := r.db.st.bookings[b.ID]; ok {
		return domain.Errorf(domain.ErrConflict, "booking %s already exists", b.ID)
	}
	t := now()
	b.CreatedAt, b.UpdatedAt = t, t
	if b.Version == 0 {
		b.Version = 1
	}
	r.db.st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepository) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	defer r.lock()()
	b, ok := r.db.st.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (r bookingRepository) Update(_ context.Context, b *domain.Booking) error {
	defer r.lock()()
	stored, ok := r.db.st.bookings[b.ID]
	if !ok {
		return notFound("booking", b.ID)
	}
	if stored.Version != b.Version {
		return domain.Errorf(domain.ErrConflict, "booking %s was modified concurrently", b.ID)
	}
	stored.Status = b.Status
	stored.PaymentStatus = b.PaymentStatus
	stored.PaymentReference = b.PaymentReference
	stored.EarningsAccrued = b.EarningsAccrued
	stored.CancelledBy = b.CancelledBy
	stored.CompletedAt = b.CompletedAt
	stored.CancelledAt = b.CancelledAt
	stored.UpdatedAt = b.UpdatedAt
	stored.Version++
	r.db.st.bookings[b.ID] = stored
	b.Version = stored.Version
	return nil
}

func matchBooking(b domain.Booking, f repository.BookingFilter, withStatus bool) bool {
	switch {
	case f.UserID != "" && b.UserID != f.UserID:
		return false
	case f.CaregiverID != "" && b.CaregiverID != f.CaregiverID:
		return false
	case f.OrganizationID != "" && (b.OrganizationID == nil || *b.OrganizationID != f.OrganizationID):
		return false
	case withStatus && f.Status != "" && b.Status != f.Status:
		return false
	}
	return true
}

// sorted returns matching bookings oldest first.
func (r bookingRepository) sorted(f repository.BookingFilter) []domain.Booking {
	var out []domain.Booking
	for _, b := range r.db.st.bookings {
		if matchBooking(b, f, true) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r bookingRepository) List(_ context.Context, f repository.BookingFilter) ([]domain.Booking, int, error) {
	defer r.lock()()
	all := r.sorted(f)
	slices.Reverse(all)

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, len(all), nil
	}
	end := min(start+pageSize, len(all))
	return all[start:end], len(all), nil
}

func (r bookingRepository) CountActive(_ context.Context, f repository.BookingFilter) (int, error) {
	defer r.lock()()
	n := 0
	for _, b := range r.db.st.bookings {
		if matchBooking(b, f, false) && !b.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

// ForEach copies the matching rows before calling fn so fn may use the store.
func (r bookingRepository) ForEach(ctx context.Context, f repository.BookingFilter, fn func(*domain.Booking) error) error {
	unlock := r.lock()
	rows := r.sorted(f)
	unlock()

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

type paymentRepository struct{ *Store }

func (r paymentRepository) CreateIntent(_ context.Context, p *domain.PaymentIntent) error {
	defer r.lock()()
	if _, ok := r.db.st.intents[p.ReferenceID]; ok {
		return domain.Errorf(domain.ErrConflict, "payment reference %s already exists", p.ReferenceID)
	}
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	r.db.st.intents[p.ReferenceID] = *p
	return nil
}

func (r paymentRepository) GetIntent(_ context.Context, referenceID string) (*domain.PaymentIntent, error) {
	defer r.lock()()
	p, ok := r.db.st.intents[referenceID]
	if !ok {
		return nil, notFound("payment reference", referenceID)
	}
	return &p, nil
}

func (r paymentRepository) UpdateIntent(_ context.Context, p *domain.PaymentIntent) error {
	defer r.lock()()
	stored, ok := r.db.st.intents[p.ReferenceID]
	if !ok {
		return notFound("payment reference", p.ReferenceID)
	}
	stored.Status, stored.TransactionID, stored.UpdatedAt = p.Status, p.TransactionID, now()
	r.db.st.intents[p.ReferenceID] = stored
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r paymentRepository) ExpireIntents(_ context.Context, issuedBefore time.Time) (int, error) {
	defer r.lock()()
	n := 0
	for id, p := range r.db.st.intents {
		if p.Status == domain.PaymentIntentIssued && p.CreatedAt.Before(issuedBefore) {
			p.Status, p.UpdatedAt = domain.PaymentIntentExpired, now()
			r.db.st.intents[id] = p
			n++
		}
	}
	return n, nil
}

type blacklistRepository struct{ *Store }

func (r blacklistRepository) CreateReport(_ context.Context, rp *domain.Report) error {
	defer r.lock()()
	rp.CreatedAt = now()
	r.db.st.reports[rp.ID] = *rp
	return nil
}

func (r blacklistRepository) GetReport(_ context.Context, id string) (*domain.Report, error) {
	defer r.lock()()
	rp, ok := r.db.st.reports[id]
	if !ok {
		return nil, notFound("report", id)
	}
	return &rp, nil
}

func (r blacklistRepository) UpdateReport(_ context.Context, rp *domain.Report) error {
	defer r.lock()()
	stored, ok := r.db.st.reports[rp.ID]
	if !ok || stored.Status != domain.ReportStatusPending {
		return domain.Errorf(domain.ErrConflict, "report %s is no longer pending", rp.ID)
	}
	stored.Status, stored.ReviewedBy, stored.ReviewedAt = rp.Status, rp.ReviewedBy, rp.ReviewedAt
	r.db.st.reports[rp.ID] = stored
	return nil
}

func (r blacklistRepository) ListReports(_ context.Context, f repository.ReportFilter) ([]domain.Report, error) {
	defer r.lock()()
	var out []domain.Report
	for _, rp := range r.db.st.reports {
		if f.OrganizationID != nil && !sameOrg(rp.OrganizationID, f.OrganizationID) {
			continue
		}
		if f.Status != "" && rp.Status != f.Status {
			continue
		}
		out = append(out, rp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r blacklistRepository) AddEntry(_ context.Context, e *domain.BlacklistEntry) (bool, error) {
	defer r.lock()()
	if e.CascadeOrgID != nil {
		for _, existing := range r.db.st.entries {
			if existing.SubjectID == e.SubjectID && sameOrg(existing.CascadeOrgID, e.CascadeOrgID) {
				return false, nil
			}
		}
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = now()
	}
	r.db.st.entries[e.ID] = *e
	return true, nil
}

func (r blacklistRepository) GetEntry(_ context.Context, id string) (*domain.BlacklistEntry, error) {
	defer r.lock()()
	e, ok := r.db.st.entries[id]
	if !ok {
		return nil, notFound("blacklist entry", id)
	}
	return &e, nil
}

func (r blacklistRepository) DeleteEntry(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.db.st.entries[id]; !ok {
		return notFound("blacklist entry", id)
	}
	delete(r.db.st.entries, id)
	return nil
}

func (r blacklistRepository) DeleteCascadeEntries(_ context.Context, orgID string) ([]string, error) {
	defer r.lock()()
	var subjects []string
	for id, e := range r.db.st.entries {
		if e.CascadeOrgID != nil && *e.CascadeOrgID == orgID {
			subjects = append(subjects, e.SubjectID)
			delete(r.db.st.entries, id)
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

func (r blacklistRepository) ListEntries(_ context.Context, f repository.EntryFilter) ([]domain.BlacklistEntry, error) {
	defer r.lock()()
	var out []domain.BlacklistEntry
	for _, e := range r.db.st.entries {
		if f.OrganizationID != nil && !sameOrg(e.OrganizationID, f.OrganizationID) {
			continue
		}
		if f.SubjectType != "" && e.SubjectType != f.SubjectType {
			continue
		}
		if f.SubjectID != "" && e.SubjectID != f.SubjectID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

func (r blacklistRepository) CountEntries(_ context.Context, subjectType domain.SubjectType, subjectID string) (int, error) {
	defer r.lock()()
	n := 0
	for _, e := range r.db.st.entries {
		if e.SubjectType == subjectType && e.SubjectID == subjectID {
			n++
		}
	}
	return n, nil
}

type settingsRepository struct{ *Store }

func (r settingsRepository) GetDefaultCommissionRate(context.Context) (decimal.Decimal, error) {
	defer r.lock()()
	if r.db.st.commission == nil {
		return decimal.Zero, notFound("setting", "default_commission_rate")
	}
	return *r.db.st.commission, nil
}

func (r settingsRepository) SetDefaultCommissionRate(_ context.Context, rate decimal.Decimal, _ string) error {
	defer r.lock()()
	r.db.st.commission = &rate
	return nil
}
