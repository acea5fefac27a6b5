package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/mailroom/internal/calendar"
	"github.com/smallbiznis/mailroom/internal/clock"
	"github.com/smallbiznis/mailroom/internal/config"
	contactrepo "github.com/smallbiznis/mailroom/internal/contact/repository"
	feerepo "github.com/smallbiznis/mailroom/internal/fee/repository"
	feeservice "github.com/smallbiznis/mailroom/internal/fee/service"
	followupservice "github.com/smallbiznis/mailroom/internal/followup/service"
	mailitemrepo "github.com/smallbiznis/mailroom/internal/mailitem/repository"
	mailitemservice "github.com/smallbiznis/mailroom/internal/mailitem/service"
	notificationrepo "github.com/smallbiznis/mailroom/internal/notification/repository"
	notificationservice "github.com/smallbiznis/mailroom/internal/notification/service"
	"github.com/smallbiznis/mailroom/internal/observability"
	"github.com/smallbiznis/mailroom/internal/providers/email"
	"github.com/smallbiznis/mailroom/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 30, 11, 0, 0, 0, calendar.Location())

type recordingProvider struct {
	sent []email.Message
}

func (p *recordingProvider) Send(_ context.Context, msg email.Message) (string, error) {
	p.sent = append(p.sent, msg)
	return "<test@mailroom.local>", nil
}

type testEnv struct {
	server   *Server
	db       *gorm.DB
	provider *recordingProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(testNow)
	holder := config.NewStaticFeeConfigHolder(config.DefaultFeeConfig())
	provider := &recordingProvider{}

	fees := feeservice.New(feeservice.Params{DB: db, Log: log, GenID: node, Repo: feerepo.Provide(), Clock: clk, Fees: holder})
	mailItems := mailitemservice.New(mailitemservice.Params{DB: db, Log: log, GenID: node, Repo: mailitemrepo.Provide(), Fees: fees, Clock: clk})
	followUps := followupservice.New(followupservice.Params{
		DB:        db,
		Log:       log,
		Clock:     clk,
		Fees:      holder,
		MailItems: mailitemrepo.Provide(),
		FeeRepo:   feerepo.Provide(),
		Contacts:  contactrepo.Provide(),
	})
	notifications := notificationservice.New(notificationservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      notificationrepo.Provide(),
		FollowUps: followUps,
		MailItems: mailitemrepo.Provide(),
		Email:     provider,
	})

	srv := NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{}),
		DB:              db,
		Clock:           clk,
		FeeSvc:          fees,
		FollowUpSvc:     followUps,
		MailItemSvc:     mailItems,
		NotificationSvc: notifications,
	})

	require.NoError(t, db.Exec(`INSERT INTO contacts (id, user_id, name, email, mailbox_number, created_at, updated_at)
		VALUES (1, 'user-a', 'Ada', 'ada@example.com', '101', ?, ?)`, testNow, testNow).Error)

	return &testEnv{server: srv, db: db, provider: provider}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, "user-a")
	req.Header.Set(HeaderActorID, "staff-1")

	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func (e *testEnv) intakePackage(t *testing.T, receivedAt string) (string, string) {
	t.Helper()
	rec, payload := e.do(t, http.MethodPost, "/api/mail-items", map[string]any{
		"contact_id":  "1",
		"item_type":   "Package",
		"received_at": receivedAt,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID := payload["data"].(map[string]any)["id"].(string)

	var feeID int64
	require.NoError(t, e.db.Raw(`SELECT id FROM package_fees WHERE mail_item_id = ?`, itemID).Scan(&feeID).Error)
	require.NotZero(t, feeID)
	return itemID, snowflake.ID(feeID).String()
}

func errorType(payload map[string]any) string {
	errObj, _ := payload["error"].(map[string]any)
	value, _ := errObj["type"].(string)
	return value
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantHeaderRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/follow-ups", nil)
	rec := httptest.NewRecorder()
	env.server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWaiveFlow(t *testing.T) {
	env := newTestEnv(t)
	_, feeID := env.intakePackage(t, "2025-06-23")

	rec, payload := env.do(t, http.MethodPost, "/api/fees/"+feeID+"/waive", map[string]any{"reason": "no"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorType(payload))

	rec, payload = env.do(t, http.MethodPost, "/api/fees/"+feeID+"/waive", map[string]any{"reason": "regular customer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := payload["data"].(map[string]any)
	assert.Equal(t, "waived", data["fee_status"])
	assert.Equal(t, "staff-1", data["waived_by"])

	rec, payload = env.do(t, http.MethodPost, "/api/fees/"+feeID+"/pay", map[string]any{"payment_method": "cash"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorType(payload))
}

func TestPayFlow(t *testing.T) {
	env := newTestEnv(t)
	_, feeID := env.intakePackage(t, "2025-06-23")

	rec, _ := env.do(t, http.MethodPost, "/api/fees/"+feeID+"/pay", map[string]any{"payment_method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload := env.do(t, http.MethodPost, "/api/fees/"+feeID+"/pay", map[string]any{
		"payment_method":   "Card",
		"collected_amount": "12.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := payload["data"].(map[string]any)
	assert.Equal(t, "paid", data["fee_status"])
	assert.Equal(t, "card", data["payment_method"])
}

func TestRecalculateAndListFollowUps(t *testing.T) {
	env := newTestEnv(t)
	_, feeID := env.intakePackage(t, "2025-06-23")

	rec, payload := env.do(t, http.MethodPost, "/api/fees/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := payload["data"].(map[string]any)
	assert.EqualValues(t, 1, summary["updated"])
	assert.EqualValues(t, 1, summary["total"])

	rec, payload = env.do(t, http.MethodGet, "/api/fees/"+feeID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	amount := decimal.RequireFromString(payload["data"].(map[string]any)["fee_amount"].(string))
	assert.Equal(t, "12.00", amount.StringFixed(2))

	rec, payload = env.do(t, http.MethodGet, "/api/follow-ups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	groups := payload["data"].([]any)
	require.Len(t, groups, 1)
	group := groups[0].(map[string]any)
	assert.Equal(t, "Ada", group["contact"].(map[string]any)["name"])
	assert.InDelta(t, 1000+12+100+7, group["urgency_score"].(float64), 1e-9)
}

func TestRecalculateFeesIgnoresRequestedDate(t *testing.T) {
	env := newTestEnv(t)
	_, feeID := env.intakePackage(t, "2025-06-23")

	for _, asOf := range []string{"2030-01-01", "2025-06-23"} {
		rec, _ := env.do(t, http.MethodPost, "/api/fees/recalculate", map[string]any{"as_of": asOf})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec, payload := env.do(t, http.MethodGet, "/api/fees/"+feeID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		amount := decimal.RequireFromString(payload["data"].(map[string]any)["fee_amount"].(string))
		assert.Equal(t, "12.00", amount.StringFixed(2), "as_of %s", asOf)
	}
}

func TestSendFollowUpAndHistory(t *testing.T) {
	env := newTestEnv(t)
	env.intakePackage(t, "2025-06-23")

	rec, payload := env.do(t, http.MethodPost, "/api/follow-ups/1/notify", map[string]any{
		"subject": "{{Name}}, {{PackageCount}} {{PackageText}}",
		"body":    "Mailbox {MailboxNumber}",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "<test@mailroom.local>", payload["data"].(map[string]any)["message_id"])
	require.Len(t, env.provider.sent, 1)
	assert.Equal(t, "Ada, 1 package", env.provider.sent[0].Subject)
	assert.Equal(t, "Mailbox 101", env.provider.sent[0].HTML)
	assert.Equal(t, "staff-1", env.provider.sent[0].SenderUserID)

	rec, payload = env.do(t, http.MethodGet, "/api/follow-ups/1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["data"].([]any), 1)

	rec, _ = env.do(t, http.MethodPost, "/api/follow-ups/999/notify", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewTemplate(t *testing.T) {
	env := newTestEnv(t)

	rec, payload := env.do(t, http.MethodPost, "/api/templates/preview", map[string]any{
		"subject":   "Hello {{Name}}",
		"body":      "{Missing} {Other}",
		"variables": map[string]any{"Name": "Ada", "Missing": nil},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := payload["data"].(map[string]any)
	assert.Equal(t, "Hello Ada", data["subject"])
	assert.Equal(t, " {Other}", data["body"])
}

func TestMailItemLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, payload := env.do(t, http.MethodPost, "/api/mail-items", map[string]any{"contact_id": "1", "item_type": "Letter"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID := payload["data"].(map[string]any)["id"].(string)

	rec, _ = env.do(t, http.MethodPatch, "/api/mail-items/"+itemID+"/type", map[string]any{"item_type": "Large Package"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fees int64
	require.NoError(t, env.db.Raw(`SELECT COUNT(*) FROM package_fees WHERE mail_item_id = ?`, itemID).Scan(&fees).Error)
	assert.EqualValues(t, 1, fees)

	rec, payload = env.do(t, http.MethodPatch, "/api/mail-items/"+itemID+"/status", map[string]any{"status": "Picked Up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, payload["data"].(map[string]any)["pickup_date"])

	rec, _ = env.do(t, http.MethodPatch, "/api/mail-items/"+itemID+"/status", map[string]any{"status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/mail-items/12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapError(t *testing.T) {
	status, payload := mapError(ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", payload.Type)

	status, _ = mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
}
