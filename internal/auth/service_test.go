package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/hitoshi/scaffcalc/internal/model"
	"github.com/hitoshi/scaffcalc/internal/repository"
)

const (
	testDirectTTL   = 24 * time.Hour
	testRedeemedTTL = 30 * 24 * time.Hour
)

type serviceFixture struct {
	clock   *fakeClock
	tokens  *repository.MemoryTokenRepo
	pending *repository.MemoryPaymentRepo
	metrics *recordingMetrics
	store   *TokenStore
	svc     *Service
	guard   *Guard
}

func newServiceFixture(mode PaymentMode) *serviceFixture {
	f := &serviceFixture{
		clock:   newFakeClock(),
		tokens:  repository.NewMemoryTokenRepo(),
		pending: repository.NewMemoryPaymentRepo(),
		metrics: &recordingMetrics{},
	}
	store := NewTokenStore(f.tokens, f.clock.Now)
	registry := NewPaymentRegistry(f.pending, f.clock.Now)
	f.svc = NewService(store, registry, f.metrics, ServiceConfig{
		FrontendURL: "https://calc.example.com/",
		PaymentMode: mode,
		DirectTTL:   testDirectTTL,
		RedeemedTTL: testRedeemedTTL,
	})
	f.store = store
	f.guard = NewGuard(store, f.metrics)
	return f
}

func TestService_RegisterPayment_BuildsConfirmationURL(t *testing.T) {
	f := newServiceFixture(PaymentModeRegistered)

	reg, err := f.svc.RegisterPayment(context.Background(), "42")
	if err != nil {
		t.Fatalf("RegisterPayment() error = %v", err)
	}

	u, err := url.Parse(reg.ConfirmationURL)
	if err != nil {
		t.Fatalf("confirmation URL is not parseable: %v", err)
	}
	if u.Host != "calc.example.com" || u.Path != "/payment-success" {
		t.Errorf("confirmation URL = %q, want https://calc.example.com/payment-success?...", reg.ConfirmationURL)
	}
	if got := u.Query().Get("userId"); got != "42" {
		t.Errorf("userId = %q, want %q", got, "42")
	}
	if got := u.Query().Get("paymentId"); got != reg.PaymentID {
		t.Errorf("paymentId = %q, want %q", got, reg.PaymentID)
	}
	if f.metrics.registered != 1 {
		t.Errorf("registered = %d, want 1", f.metrics.registered)
	}
}

func TestService_ConfirmPayment_RegisteredMode(t *testing.T) {
	f := newServiceFixture(PaymentModeRegistered)
	ctx := context.Background()

	reg, _ := f.svc.RegisterPayment(ctx, "42")

	token, err := f.svc.ConfirmPayment(ctx, "42", reg.PaymentID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !token.ExpiresAt.Equal(f.clock.now.Add(testRedeemedTTL)) {
		t.Errorf("ExpiresAt = %v, want issue+30d", token.ExpiresAt)
	}
	if len(f.metrics.issued) != 1 || f.metrics.issued[0] != "redeemed" {
		t.Errorf("issued = %v, want [redeemed]", f.metrics.issued)
	}
}

func TestService_ConfirmPayment_SecondRedemptionFails(t *testing.T) {
	f := newServiceFixture(PaymentModeRegistered)
	ctx := context.Background()

	reg, _ := f.svc.RegisterPayment(ctx, "42")
	if _, err := f.svc.ConfirmPayment(ctx, "42", reg.PaymentID); err != nil {
		t.Fatalf("first ConfirmPayment() error = %v", err)
	}

	_, err := f.svc.ConfirmPayment(ctx, "42", reg.PaymentID)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidPayment)

	if count, _ := f.tokens.Count(ctx); count != 1 {
		t.Errorf("token count = %d, want 1", count)
	}
	if len(f.metrics.redeemed) != 2 || !f.metrics.redeemed[0] || f.metrics.redeemed[1] {
		t.Errorf("redeemed = %v, want [true false]", f.metrics.redeemed)
	}
}

func TestService_ConfirmPayment_UnregisteredRejectedInRegisteredMode(t *testing.T) {
	f := newServiceFixture(PaymentModeRegistered)

	_, err := f.svc.ConfirmPayment(context.Background(), "42", "made-up-payment")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidPayment)
}

func TestService_ConfirmPayment_MissingParams(t *testing.T) {
	for _, mode := range []PaymentMode{PaymentModeRegistered, PaymentModeDirect} {
		f := newServiceFixture(mode)

		_, err := f.svc.ConfirmPayment(context.Background(), "", "pay")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidPayment)

		_, err = f.svc.ConfirmPayment(context.Background(), "42", "")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidPayment)
	}
}

func TestService_ConfirmPayment_DirectMode(t *testing.T) {
	f := newServiceFixture(PaymentModeDirect)

	token, err := f.svc.ConfirmPayment(context.Background(), "42", "first-sight")
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !token.ExpiresAt.Equal(f.clock.now.Add(testDirectTTL)) {
		t.Errorf("ExpiresAt = %v, want issue+24h", token.ExpiresAt)
	}
	if len(f.metrics.issued) != 1 || f.metrics.issued[0] != "direct" {
		t.Errorf("issued = %v, want [direct]", f.metrics.issued)
	}
}

func TestService_DefaultsToRegisteredMode(t *testing.T) {
	svc := NewService(
		NewTokenStore(repository.NewMemoryTokenRepo(), nil),
		NewPaymentRegistry(repository.NewMemoryPaymentRepo(), nil),
		nil,
		ServiceConfig{RedeemedTTL: time.Hour},
	)

	_, err := svc.ConfirmPayment(context.Background(), "42", "never-registered")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidPayment)
}

// TestService_PurchaseToAuthorizeScenario は登録から引き換え、認可までの一連の流れを検証する。
func TestService_PurchaseToAuthorizeScenario(t *testing.T) {
	f := newServiceFixture(PaymentModeRegistered)
	ctx := context.Background()

	reg, err := f.svc.RegisterPayment(ctx, "42")
	if err != nil {
		t.Fatalf("RegisterPayment() error = %v", err)
	}

	token, err := f.svc.ConfirmPayment(ctx, "42", reg.PaymentID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}

	f.clock.Advance(24 * time.Hour)
	if _, err := f.guard.Authorize(ctx, token.ID); err != nil {
		t.Fatalf("Authorize() at issue+1d error = %v", err)
	}

	_, remaining, err := f.store.Validate(ctx, token.ID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if remaining != 29*24*time.Hour {
		t.Errorf("remaining = %v, want 29 days", remaining)
	}

	f.clock.Advance(29 * 24 * time.Hour)
	_, err = f.guard.Authorize(ctx, token.ID)
	assertAPIErrorCode(t, err, model.ErrCodeExpiredToken)
}
