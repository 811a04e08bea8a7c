package demandsvc_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeMembers map[string]*models.Member

func (f fakeMembers) GetMemberByID(_ context.Context, id string) (*models.Member, error) {
	return f[id], nil
}

type fakeAdmins map[string]*models.Admin

func (f fakeAdmins) GetAdminByID(_ context.Context, id string) (*models.Admin, error) {
	return f[id], nil
}

type fakeContracts struct {
	mu    sync.Mutex
	err   error
	calls []models.ContractTerms

	// When set, CreateContract signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeContracts) CreateContract(_ context.Context, terms models.ContractTerms) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, terms)
	if f.err != nil {
		return "", f.err
	}
	return "CT-" + terms.DemandID, nil
}

func (f *fakeContracts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSettings struct {
	active *models.ProductSettings
	err    error
}

func (f fakeSettings) GetActive(context.Context, models.Domain, string) (*models.ProductSettings, error) {
	return f.active, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) audiences(kind string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, n := range p.sent {
		if n.Type == kind {
			out = append(out, n.Audience)
		}
	}
	return out
}

type countingCache struct {
	invalidations int
}

func (c *countingCache) Get(ctx context.Context, _ models.Domain, _ demandstore.Filters, load func(context.Context) demandstore.Stats) demandstore.Stats {
	return load(ctx)
}

func (c *countingCache) Invalidate(context.Context, models.Domain) { c.invalidations++ }

type harness struct {
	svc       *demandsvc.Service
	repo      *testutil.MemoryDemandRepo
	contracts *fakeContracts
	settings  *fakeSettings
	pub       *recordingPublisher
	cache     *countingCache
}

func newHarness(t *testing.T, domain models.Domain) *harness {
	t.Helper()
	h := &harness{
		repo:      testutil.NewMemoryDemandRepo(domain),
		contracts: &fakeContracts{},
		settings:  &fakeSettings{active: &models.ProductSettings{ID: "settings-v3", Domain: domain, Version: 3, IsActive: true}},
		pub:       &recordingPublisher{},
		cache:     &countingCache{},
	}
	h.repo.Now = func() time.Time { return testNow }

	h.svc = demandsvc.New(demandsvc.Deps{
		Repo: h.repo,
		Members: fakeMembers{
			"m-1": {ID: "m-1", LastName: "Ndong", FirstName: "Alice", Matricule: "0012-MK-2024"},
		},
		Admins: fakeAdmins{
			"admin-1": {ID: "admin-1", FirstName: "Paul", LastName: "Mba", Role: "admin"},
		},
		Contracts: h.contracts,
		Settings:  h.settings,
		Publisher: h.pub,
		Stats:     h.cache,
		Log:       zap.NewNop(),
	}, demandsvc.Options{
		ConversionStaleAfter: 5 * time.Minute,
		Now:                  func() time.Time { return testNow },
	})
	return h
}

func (h *harness) put(t *testing.T, id string, status models.DemandStatus, mutate func(*models.Demand)) models.Demand {
	t.Helper()
	d := models.Demand{
		ID:        id,
		Domain:    h.repo.Domain(),
		Status:    status,
		MemberID:  "m-1",
		Terms:     models.DemandTerms{Amount: 50000, DurationMonths: 6},
		CreatedBy: "agent-7",
		CreatedAt: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(&d)
	}
	h.repo.Put(d)
	return d
}

func TestCreate(t *testing.T) {
	h := newHarness(t, models.DomainSpecialSavings)
	ctx := context.Background()

	d, err := h.svc.Create(ctx, demandsvc.CreateInput{
		MemberID:   "m-1",
		CaisseType: "STANDARD",
		Terms:      models.DemandTerms{Amount: 100000, DurationMonths: 12},
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if want := "MK_DEMANDE_CSP_0012-MK-2024_140325_093000"; d.ID != want {
		t.Errorf("ID = %q, want %q", d.ID, want)
	}
	if d.Status != models.DemandPending {
		t.Errorf("Status = %s, want PENDING", d.Status)
	}
	if d.SearchByLastName != "ndong alice 0012-mk-2024" {
		t.Errorf("SearchByLastName = %q", d.SearchByLastName)
	}
	if len(d.History) != 1 || d.History[0].Action != models.ActionCreated || d.History[0].ActorName != "Paul Mba" {
		t.Errorf("History = %+v", d.History)
	}
	if got := h.pub.audiences(models.NotifyNewRequest); len(got) != 1 || got[0] != models.AudienceAdmins {
		t.Errorf("new_request audiences = %v", got)
	}
	if h.cache.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", h.cache.invalidations)
	}
}

func TestCreate_Errors(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, demandsvc.CreateInput{MemberID: "  "}, "admin-1")
	if !errors.Is(err, demandsvc.ErrValidation) {
		t.Errorf("blank member: err = %v, want ErrValidation", err)
	}

	_, err = h.svc.Create(ctx, demandsvc.CreateInput{MemberID: "ghost"}, "admin-1")
	if !errors.Is(err, demandsvc.ErrNotFound) {
		t.Errorf("unknown member: err = %v, want ErrNotFound", err)
	}

	h.repo.FailOn("Create", errors.New("connection reset"))
	_, err = h.svc.Create(ctx, demandsvc.CreateInput{MemberID: "m-1"}, "admin-1")
	var infra *demandsvc.InfrastructureError
	if !errors.As(err, &infra) {
		t.Errorf("store failure: err = %v, want InfrastructureError", err)
	}
	if h.repo.Len() != 0 {
		t.Errorf("stored %d demands, want 0", h.repo.Len())
	}
}

func TestApprove_ConvertsDemand(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	ctx := context.Background()
	h.put(t, "d-1", models.DemandPending, nil)

	d, err := h.svc.Approve(ctx, "d-1", "admin-1", "complete file")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if d.Status != models.DemandConverted {
		t.Fatalf("Status = %s, want CONVERTED", d.Status)
	}
	if d.ContractID == nil || *d.ContractID != "CT-d-1" {
		t.Errorf("ContractID = %v, want CT-d-1", d.ContractID)
	}
	if d.DecisionMadeBy != "admin-1" || d.DecisionMadeByName != "Paul Mba" || d.DecisionReason != "complete file" {
		t.Errorf("decision = %q/%q/%q", d.DecisionMadeBy, d.DecisionMadeByName, d.DecisionReason)
	}
	if d.ConvertedBy != "admin-1" || d.ConvertedAt == nil {
		t.Errorf("conversion metadata missing: %+v", d)
	}
	if d.ConversionStartedAt != nil {
		t.Error("conversion claim should be cleared")
	}

	var actions []models.AuditAction
	for _, e := range d.History {
		actions = append(actions, e.Action)
	}
	if fmt.Sprint(actions) != fmt.Sprint([]models.AuditAction{models.ActionApproved, models.ActionConverted}) {
		t.Errorf("history actions = %v", actions)
	}

	got := h.pub.audiences(models.NotifyContractCreated)
	want := []string{models.MemberAudience("m-1"), models.UserAudience("agent-7")}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("contract_created audiences = %v, want %v", got, want)
	}
}

func TestApprove_RequesterIsActor_NotifiesMemberOnly(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandPending, func(d *models.Demand) { d.CreatedBy = "admin-1" })

	if _, err := h.svc.Approve(context.Background(), "d-1", "admin-1", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := h.pub.audiences(models.NotifyContractCreated); len(got) != 1 {
		t.Errorf("contract_created audiences = %v, want member only", got)
	}
}

func TestApprove_ContractFailure_LeavesApproved(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	ctx := context.Background()
	h.put(t, "d-1", models.DemandPending, nil)
	h.contracts.err = errors.New("contract service unavailable")

	_, err := h.svc.Approve(ctx, "d-1", "admin-1", "")
	if err == nil || !errors.Is(err, h.contracts.err) {
		t.Fatalf("Approve err = %v, want contract error", err)
	}

	d, err := h.svc.GetByID(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d.Status != models.DemandApproved || d.HasContract() {
		t.Errorf("demand = %s contract=%v, want APPROVED without contract", d.Status, d.ContractID)
	}
	if d.ConversionStartedAt != nil {
		t.Error("claim should be released after failure")
	}
	if d.ConversionError != "contract service unavailable" {
		t.Errorf("ConversionError = %q", d.ConversionError)
	}
	if got := h.pub.audiences(models.NotifyConversionFailed); len(got) != 1 || got[0] != models.AudienceAdmins {
		t.Errorf("conversion_failed audiences = %v", got)
	}

	// A later retry succeeds and clears the recorded error.
	h.contracts.err = nil
	converted, contractID, err := h.svc.Convert(ctx, "d-1", "admin-1")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if contractID != "CT-d-1" || converted.Status != models.DemandConverted {
		t.Errorf("Convert = %s/%q", converted.Status, contractID)
	}
	if converted.ConversionError != "" {
		t.Errorf("ConversionError = %q, want cleared", converted.ConversionError)
	}
	if last := h.contracts.calls[len(h.contracts.calls)-1]; last.SettingsID != "settings-v3" {
		t.Errorf("contract settings = %q, want settings-v3", last.SettingsID)
	}
}

func TestTransitions_InvalidSource(t *testing.T) {
	statuses := []models.DemandStatus{models.DemandPending, models.DemandApproved, models.DemandRejected, models.DemandConverted}

	tests := []struct {
		name    string
		allowed models.DemandStatus
		run     func(svc *demandsvc.Service) error
	}{
		{"approve", models.DemandPending, func(svc *demandsvc.Service) error {
			_, err := svc.Approve(context.Background(), "d-1", "admin-1", "")
			return err
		}},
		{"reject", models.DemandPending, func(svc *demandsvc.Service) error {
			_, err := svc.Reject(context.Background(), "d-1", "admin-1", "incomplete")
			return err
		}},
		{"reopen", models.DemandRejected, func(svc *demandsvc.Service) error {
			_, err := svc.Reopen(context.Background(), "d-1", "admin-1", "new documents")
			return err
		}},
	}

	for _, tt := range tests {
		for _, st := range statuses {
			if st == tt.allowed {
				continue
			}
			t.Run(tt.name+"_from_"+string(st), func(t *testing.T) {
				h := newHarness(t, models.DomainPlacement)
				before := h.put(t, "d-1", st, func(d *models.Demand) {
					if st == models.DemandConverted {
						cid := "CT-old"
						d.ContractID = &cid
					}
				})

				err := tt.run(h.svc)
				if !errors.Is(err, demandsvc.ErrInvalidTransition) {
					t.Fatalf("err = %v, want ErrInvalidTransition", err)
				}

				after, _ := h.svc.GetByID(context.Background(), "d-1")
				if !after.UpdatedAt.Equal(before.UpdatedAt) || after.Status != before.Status {
					t.Error("demand was written despite invalid transition")
				}
				if h.contracts.count() != 0 {
					t.Error("contract created despite invalid transition")
				}
			})
		}
	}
}

func TestApprove_NoMember(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandPending, func(d *models.Demand) { d.MemberID = "" })

	_, err := h.svc.Approve(context.Background(), "d-1", "admin-1", "")
	if !errors.Is(err, demandsvc.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestRejectThenReopen(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	ctx := context.Background()
	h.put(t, "d-1", models.DemandPending, nil)

	rejected, err := h.svc.Reject(ctx, "d-1", "admin-1", "missing payslip")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != models.DemandRejected || rejected.DecisionReason != "missing payslip" {
		t.Errorf("rejected = %s/%q", rejected.Status, rejected.DecisionReason)
	}
	got := h.pub.audiences(models.NotifyDemandRejected)
	if fmt.Sprint(got) != fmt.Sprint([]string{models.MemberAudience("m-1"), models.UserAudience("agent-7")}) {
		t.Errorf("demand_rejected audiences = %v", got)
	}

	reopened, err := h.svc.Reopen(ctx, "d-1", "admin-1", "payslip received")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if reopened.Status != models.DemandPending {
		t.Errorf("Status = %s, want PENDING", reopened.Status)
	}
	if reopened.DecisionReason != "missing payslip" || reopened.DecisionMadeBy != "admin-1" {
		t.Errorf("prior decision not preserved: %q by %q", reopened.DecisionReason, reopened.DecisionMadeBy)
	}
	if reopened.ReopenReason != "payslip received" || reopened.ReopenedByName != "Paul Mba" || reopened.ReopenedAt == nil {
		t.Errorf("reopen metadata = %q/%q/%v", reopened.ReopenReason, reopened.ReopenedByName, reopened.ReopenedAt)
	}
	got = h.pub.audiences(models.NotifyDemandReopened)
	if fmt.Sprint(got) != fmt.Sprint([]string{models.MemberAudience("m-1"), models.AudienceAdmins}) {
		t.Errorf("demand_reopened audiences = %v", got)
	}
}

func TestConvert_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("twice", func(t *testing.T) {
		h := newHarness(t, models.DomainEmergency)
		h.put(t, "d-1", models.DemandApproved, nil)

		if _, _, err := h.svc.Convert(ctx, "d-1", "admin-1"); err != nil {
			t.Fatalf("first Convert: %v", err)
		}
		_, _, err := h.svc.Convert(ctx, "d-1", "admin-1")
		if !errors.Is(err, demandsvc.ErrAlreadyConverted) {
			t.Errorf("second Convert err = %v, want ErrAlreadyConverted", err)
		}
		if h.contracts.count() != 1 {
			t.Errorf("contracts created = %d, want 1", h.contracts.count())
		}
	})

	t.Run("pending", func(t *testing.T) {
		h := newHarness(t, models.DomainEmergency)
		h.put(t, "d-1", models.DemandPending, nil)
		_, _, err := h.svc.Convert(ctx, "d-1", "admin-1")
		if !errors.Is(err, demandsvc.ErrInvalidTransition) {
			t.Errorf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("no settings", func(t *testing.T) {
		h := newHarness(t, models.DomainEmergency)
		h.settings.active = nil
		h.put(t, "d-1", models.DemandApproved, nil)
		_, _, err := h.svc.Convert(ctx, "d-1", "admin-1")
		if !errors.Is(err, demandsvc.ErrConfiguration) {
			t.Errorf("err = %v, want ErrConfiguration", err)
		}
		if h.contracts.count() != 0 {
			t.Error("contract created without settings")
		}
	})

	t.Run("fresh claim held elsewhere", func(t *testing.T) {
		h := newHarness(t, models.DomainEmergency)
		started := testNow.Add(-time.Minute)
		h.put(t, "d-1", models.DemandApproved, func(d *models.Demand) { d.ConversionStartedAt = &started })
		_, _, err := h.svc.Convert(ctx, "d-1", "admin-1")
		if !errors.Is(err, demandsvc.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t, models.DomainEmergency)
		_, _, err := h.svc.Convert(ctx, "nope", "admin-1")
		if !errors.Is(err, demandsvc.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestApprove_Concurrent_SingleContract(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandPending, nil)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Approve(context.Background(), "d-1", "admin-1", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, demandsvc.ErrConflict), errors.Is(err, demandsvc.ErrInvalidTransition):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful approvals = %d, want 1", succeeded)
	}
	if h.contracts.count() != 1 {
		t.Errorf("contracts created = %d, want 1", h.contracts.count())
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandRejected, nil)
	h.put(t, "d-2", models.DemandConverted, func(d *models.Demand) {
		cid := "CT-d-2"
		d.ContractID = &cid
	})

	if err := h.svc.Delete(ctx, "d-1", "admin-1"); err != nil {
		t.Fatalf("Delete rejected: %v", err)
	}
	if _, err := h.svc.GetByID(ctx, "d-1"); !errors.Is(err, demandsvc.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
	if err := h.svc.Delete(ctx, "d-2", "admin-1"); !errors.Is(err, demandsvc.ErrConflict) {
		t.Errorf("delete converted err = %v, want ErrConflict", err)
	}
	if err := h.svc.Delete(ctx, "d-1", "admin-1"); !errors.Is(err, demandsvc.ErrNotFound) {
		t.Errorf("delete missing err = %v, want ErrNotFound", err)
	}
}

func TestDelete_ConversionInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandPending, nil)
	h.contracts.entered = make(chan struct{})
	h.contracts.release = make(chan struct{})

	approveErr := make(chan error, 1)
	go func() {
		_, err := h.svc.Approve(ctx, "d-1", "admin-1", "")
		approveErr <- err
	}()

	<-h.contracts.entered
	if err := h.svc.Delete(ctx, "d-1", "admin-1"); !errors.Is(err, demandsvc.ErrConflict) {
		t.Errorf("delete during conversion err = %v, want ErrConflict", err)
	}
	close(h.contracts.release)

	if err := <-approveErr; err != nil {
		t.Fatalf("Approve: %v", err)
	}
	d, err := h.svc.GetByID(ctx, "d-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d.Status != models.DemandConverted || !d.HasContract() {
		t.Errorf("demand = %s contract=%v, want CONVERTED with contract", d.Status, d.ContractID)
	}
}

func TestDelete_StaleClaimBlocked(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	claimed := testNow.Add(-time.Hour)
	h.put(t, "d-1", models.DemandApproved, func(d *models.Demand) { d.ConversionStartedAt = &claimed })

	if err := h.svc.Delete(context.Background(), "d-1", "admin-1"); !errors.Is(err, demandsvc.ErrConflict) {
		t.Errorf("delete with claim err = %v, want ErrConflict", err)
	}
	if h.repo.Len() != 1 {
		t.Errorf("repo len = %d, want 1", h.repo.Len())
	}
}

func TestGetByContractID(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandApproved, nil)
	if _, _, err := h.svc.Convert(context.Background(), "d-1", "admin-1"); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	d, err := h.svc.GetByContractID(context.Background(), "CT-d-1")
	if err != nil || d.ID != "d-1" {
		t.Errorf("GetByContractID = %q, %v", d.ID, err)
	}
	if _, err := h.svc.GetByContractID(context.Background(), "CT-none"); !errors.Is(err, demandsvc.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_InfrastructureError(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	cause := errors.New("index missing")
	h.repo.FailOn("GetDemandsWithFilters", cause)

	_, err := h.svc.List(context.Background(), demandstore.Filters{})
	var infra *demandsvc.InfrastructureError
	if !errors.As(err, &infra) || !errors.Is(err, cause) {
		t.Errorf("err = %v, want InfrastructureError wrapping cause", err)
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	h.put(t, "d-1", models.DemandPending, nil)
	h.put(t, "d-2", models.DemandPending, nil)
	h.put(t, "d-3", models.DemandRejected, nil)

	st := h.svc.Stats(context.Background(), demandstore.Filters{Status: models.DemandRejected})
	if st.Pending != 2 || st.Rejected != 1 || st.Total != 3 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestRecoverStale(t *testing.T) {
	h := newHarness(t, models.DomainEmergency)
	stale := testNow.Add(-10 * time.Minute)
	fresh := testNow.Add(-time.Minute)
	h.put(t, "d-stale", models.DemandApproved, func(d *models.Demand) { d.ConversionStartedAt = &stale })
	h.put(t, "d-fresh", models.DemandApproved, func(d *models.Demand) { d.ConversionStartedAt = &fresh })

	n, err := h.svc.RecoverStale(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}
	if n != 1 {
		t.Errorf("recovered = %d, want 1", n)
	}

	d, _ := h.svc.GetByID(context.Background(), "d-stale")
	if d.Status != models.DemandConverted || d.ConvertedBy != models.SystemActorID {
		t.Errorf("stale demand = %s by %q", d.Status, d.ConvertedBy)
	}
	d, _ = h.svc.GetByID(context.Background(), "d-fresh")
	if d.Status != models.DemandApproved {
		t.Errorf("fresh demand status = %s, want APPROVED", d.Status)
	}
}
