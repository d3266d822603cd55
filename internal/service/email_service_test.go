package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/models"

	"gopkg.in/gomail.v2"
)

func newTestEmailService(cfg *config.EmailConfig) (*EmailService, *[]*gomail.Message) {
	svc := NewEmailService(cfg, time.UTC)
	sent := []*gomail.Message{}
	svc.send = func(msg *gomail.Message) error {
		sent = append(sent, msg)
		return nil
	}
	return svc, &sent
}

func TestEmailServiceSendCompletionEmail(t *testing.T) {
	svc, sent := newTestEmailService(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    465,
		From:    "noreply@example.com",
		Brand:   "Phacogen",
	})
	err := svc.SendCompletionEmail(context.Background(), CompletionEmailInput{
		ClinicEmail:  "clinic@example.com",
		ClinicName:   "Phòng khám A",
		OrderCode:    "TM-150124-001",
		CompletedAt:  time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		EmployeeName: "Trần Văn B",
	})
	if err != nil {
		t.Fatalf("send completion email failed: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected one message, got %d", len(*sent))
	}
	subject := (*sent)[0].GetHeader("Subject")
	if len(subject) != 1 || subject[0] != "Phacogen - Thông báo nhận mẫu - TM-150124-001" {
		t.Fatalf("unexpected subject: %v", subject)
	}
	if to := (*sent)[0].GetHeader("To"); len(to) != 1 || to[0] != "clinic@example.com" {
		t.Fatalf("unexpected recipient: %v", to)
	}
}

func TestEmailServiceRejectsBadConfigAndAddress(t *testing.T) {
	ctx := context.Background()
	input := CompletionEmailInput{ClinicEmail: "clinic@example.com", OrderCode: "TM-1"}

	disabled, _ := newTestEmailService(&config.EmailConfig{Enabled: false})
	if err := disabled.SendCompletionEmail(ctx, input); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	incomplete, _ := newTestEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com"})
	if err := incomplete.SendCompletionEmail(ctx, input); !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
	ready, sent := newTestEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	input.ClinicEmail = "not-an-email"
	if err := ready.SendCompletionEmail(ctx, input); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email error, got %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestEmailServiceNormalizesRecipientRejection(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, time.UTC)
	svc.send = func(*gomail.Message) error {
		return errors.New("550 5.1.1 Recipient address rejected: User unknown")
	}
	err := svc.SendCompletionEmail(context.Background(), CompletionEmailInput{ClinicEmail: "ghost@example.com", OrderCode: "TM-1"})
	if !errors.Is(err, ErrEmailRecipientRejected) {
		t.Fatalf("expected recipient rejected, got %v", err)
	}
	if isEmailRecipientRejected(errors.New("dial tcp: i/o timeout")) {
		t.Fatalf("network errors are not recipient rejections")
	}
}

func TestEmailServiceSendHonorsContext(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, time.UTC)
	release := make(chan struct{})
	defer close(release)
	svc.send = func(*gomail.Message) error {
		<-release
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.SendCompletionEmail(ctx, CompletionEmailInput{ClinicEmail: "clinic@example.com", OrderCode: "TM-1"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRenderMultiFeeEmail(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{}, time.UTC)
	input := MultiFeeEmailInput{
		CompletionEmailInput: CompletionEmailInput{
			ClinicName:  "Phòng khám C",
			OrderCode:   "TM-150124-002",
			CompletedAt: time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC),
		},
		CollectionFee: models.NewMoneyFromInt(30000),
		ShippingFee:   models.NewMoneyFromInt(20000),
		ParkingFee:    models.NewMoneyFromInt(5000),
		Photos:        []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
	}
	body, err := renderEmail(multiFeeEmailTemplate, svc.templateData(input.CompletionEmailInput, &input))
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"55000.00", "08:05 15/01/2024", "Ảnh 2", "N/A", "TM-150124-002"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body should contain %q:\n%s", want, body)
		}
	}
}
