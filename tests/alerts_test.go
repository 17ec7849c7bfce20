package tests

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/api/internal/model"
	"github.com/jobdeck/jobdeck/api/internal/notify"
	"github.com/jobdeck/jobdeck/api/internal/repository"
	"github.com/jobdeck/jobdeck/api/internal/testing/fixtures"
	"github.com/jobdeck/jobdeck/api/internal/testing/testdb"
)

/*
FEATURE: Job Alert Delivery
DOMAIN: Notification Dispatch

ACCEPTANCE CRITERIA:
===================

AC-ALERT-001: Matching Window Delivery
  GIVEN an active alert and a new listing matching its criteria
  WHEN the alert dispatch runs
  THEN one email is sent to the alert owner
  AND the alert watermark advances to the included listing

AC-ALERT-002: Non-Matching Listings Excluded
  GIVEN new listings that do not satisfy the alert criteria
  WHEN the alert dispatch runs
  THEN no email is sent and the watermark does not move

AC-ALERT-003: Empty Window Is Success
  GIVEN an alert whose window has already been sent
  WHEN the alert dispatch runs again
  THEN the outcome is delivered-zero and the watermark does not move
*/

// captureTransport records sends instead of delivering
type captureTransport struct {
	mu    sync.Mutex
	sends []capturedSend
}

type capturedSend struct {
	Recipient string
	Subject   string
	Body      string
}

func (t *captureTransport) Send(_ context.Context, recipient, subject, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, capturedSend{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (t *captureTransport) Sends() []capturedSend {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]capturedSend(nil), t.sends...)
}

type alertHarness struct {
	tdb        *testdb.TestDB
	fx         *fixtures.Factory
	alerts     *repository.AlertRepository
	transport  *captureTransport
	dispatcher *notify.Dispatcher
}

func newAlertHarness(t *testing.T) *alertHarness {
	t.Helper()
	tdb := testdb.New(t)
	t.Cleanup(tdb.Close)

	renderer, err := notify.NewTemplateRenderer(nil)
	require.NoError(t, err)

	jobRepo := repository.NewJobRepository(tdb.DB)
	alertRepo := repository.NewAlertRepository(tdb.DB)
	transport := &captureTransport{}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Users:       repository.NewUserRepository(tdb.DB),
		Apps:        repository.NewApplicationRepository(tdb.DB),
		Alerts:      alertRepo,
		Jobs:        jobRepo,
		Recommender: jobRepo,
		Transport:   transport,
		Renderer:    renderer,
	})

	return &alertHarness{
		tdb:        tdb,
		fx:         fixtures.New(tdb.DB),
		alerts:     alertRepo,
		transport:  transport,
		dispatcher: dispatcher,
	}
}

func (h *alertHarness) dispatch(t *testing.T, alertID string) notify.Outcome {
	t.Helper()
	req := model.NewDispatchRequest(model.JobAlertPayload{AlertID: alertID}, 3)
	return h.dispatcher.Dispatch(h.tdb.Ctx(), req)
}

func TestJobAlert_MatchingListingDelivered(t *testing.T) {
	// AC-ALERT-001: Matching Window Delivery
	h := newAlertHarness(t)

	user := h.fx.CreateUser(t)
	alert := h.fx.CreateJobAlert(t, user, fixtures.AlertOpts{
		Criteria: model.AlertCriteria{TitleContains: "engineer"},
	})
	listing := h.fx.CreateJobListing(t, fixtures.ListingOpts{
		Title: "Senior Backend Engineer",
	})

	out := h.dispatch(t, alert.ID)

	require.Equal(t, notify.OutcomeDelivered, out.Kind, "outcome: %s", out)
	assert.Equal(t, 1, out.Delivered)

	sends := h.transport.Sends()
	require.Len(t, sends, 1)
	assert.Equal(t, user.Email, sends[0].Recipient)
	assert.Contains(t, sends[0].Subject, "1 new jobs")
	assert.Contains(t, sends[0].Body, listing.Title)

	reloaded, err := h.alerts.GetByID(h.tdb.Ctx(), alert.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.LastSentAt.Before(listing.CreatedAt),
		"watermark must cover the included listing")
}

func TestJobAlert_NonMatchingListingsExcluded(t *testing.T) {
	// AC-ALERT-002: Non-Matching Listings Excluded
	h := newAlertHarness(t)

	user := h.fx.CreateUser(t)
	alert := h.fx.CreateJobAlert(t, user, fixtures.AlertOpts{
		Criteria: model.AlertCriteria{TitleContains: "designer", SalaryMin: 120000},
	})
	h.fx.CreateJobListing(t, fixtures.ListingOpts{Title: "Backend Engineer"})
	h.fx.CreateJobListing(t, fixtures.ListingOpts{Title: "Product Designer", SalaryMax: 60000})

	before, err := h.alerts.GetByID(h.tdb.Ctx(), alert.ID)
	require.NoError(t, err)

	out := h.dispatch(t, alert.ID)

	require.Equal(t, notify.OutcomeDelivered, out.Kind, "outcome: %s", out)
	assert.Equal(t, 0, out.Delivered)
	assert.Empty(t, h.transport.Sends())

	after, err := h.alerts.GetByID(h.tdb.Ctx(), alert.ID)
	require.NoError(t, err)
	assert.True(t, after.LastSentAt.Equal(before.LastSentAt),
		"empty window must not move the watermark")
}

func TestJobAlert_SecondRunEmptyWindow(t *testing.T) {
	// AC-ALERT-003: Empty Window Is Success
	h := newAlertHarness(t)

	user := h.fx.CreateUser(t)
	alert := h.fx.CreateJobAlert(t, user, fixtures.AlertOpts{
		Criteria: model.AlertCriteria{LocationContains: "berlin"},
	})
	h.fx.CreateJobListing(t, fixtures.ListingOpts{Location: "Berlin"})

	first := h.dispatch(t, alert.ID)
	require.Equal(t, notify.OutcomeDelivered, first.Kind, "outcome: %s", first)
	require.Equal(t, 1, first.Delivered)

	watermarked, err := h.alerts.GetByID(h.tdb.Ctx(), alert.ID)
	require.NoError(t, err)

	second := h.dispatch(t, alert.ID)
	require.Equal(t, notify.OutcomeDelivered, second.Kind, "outcome: %s", second)
	assert.Equal(t, 0, second.Delivered, "already-sent listings must not resend")
	assert.Len(t, h.transport.Sends(), 1)

	final, err := h.alerts.GetByID(h.tdb.Ctx(), alert.ID)
	require.NoError(t, err)
	assert.True(t, final.LastSentAt.Equal(watermarked.LastSentAt))
}

func TestJobAlert_CriteriaAreCaseInsensitive(t *testing.T) {
	h := newAlertHarness(t)

	user := h.fx.CreateUser(t)
	alert := h.fx.CreateJobAlert(t, user, fixtures.AlertOpts{
		Criteria: model.AlertCriteria{TitleContains: strings.ToUpper("engineer")},
	})
	h.fx.CreateJobListing(t, fixtures.ListingOpts{Title: "platform engineer"})

	out := h.dispatch(t, alert.ID)

	require.Equal(t, notify.OutcomeDelivered, out.Kind, "outcome: %s", out)
	assert.Equal(t, 1, out.Delivered)
}

func TestJobAlert_StaleListingOutsideWindow(t *testing.T) {
	h := newAlertHarness(t)

	user := h.fx.CreateUser(t)
	alert := h.fx.CreateJobAlert(t, user, fixtures.AlertOpts{
		Criteria:   model.AlertCriteria{TitleContains: "engineer"},
		LastSentAt: time.Now().UTC().Add(-time.Hour),
	})
	h.fx.CreateJobListing(t, fixtures.ListingOpts{
		Title:     "Backend Engineer",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	})

	out := h.dispatch(t, alert.ID)

	require.Equal(t, notify.OutcomeDelivered, out.Kind, "outcome: %s", out)
	assert.Equal(t, 0, out.Delivered, "listings older than the watermark are excluded")
	assert.Empty(t, h.transport.Sends())
}
