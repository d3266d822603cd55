package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/models"

	"gopkg.in/gomail.v2"
)

// CompletionMailer 采样完成邮件发送接口
type CompletionMailer interface {
	SendCompletionEmail(ctx context.Context, input CompletionEmailInput) error
	SendMultiFeeCompletionEmail(ctx context.Context, input MultiFeeEmailInput) error
}

// CompletionEmailInput 标准单完成邮件
type CompletionEmailInput struct {
	ClinicEmail  string
	ClinicName   string
	OrderCode    string
	CompletedAt  time.Time
	EmployeeName string
}

// MultiFeeEmailInput 多站点单完成邮件（含费用明细与照片）
type MultiFeeEmailInput struct {
	CompletionEmailInput
	CollectionFee models.Money
	ShippingFee   models.Money
	ParkingFee    models.Money
	Photos        []string
}

// Total 费用合计
func (in MultiFeeEmailInput) Total() models.Money {
	return in.CollectionFee.Add(in.ShippingFee).Add(in.ParkingFee)
}

// EmailService SMTP 邮件服务
type EmailService struct {
	cfg  *config.EmailConfig
	loc  *time.Location
	send func(msg *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig, loc *time.Location) *EmailService {
	if loc == nil {
		loc = time.Local
	}
	s := &EmailService{cfg: cfg, loc: loc}
	s.send = s.dialAndSend
	return s
}

// SendCompletionEmail 发送标准单完成通知
func (s *EmailService) SendCompletionEmail(ctx context.Context, input CompletionEmailInput) error {
	subject := fmt.Sprintf("%s - Thông báo nhận mẫu - %s", s.brand(), input.OrderCode)
	body, err := renderEmail(completionEmailTemplate, s.templateData(input, nil))
	if err != nil {
		return err
	}
	return s.sendHTML(ctx, input.ClinicEmail, subject, body)
}

// SendMultiFeeCompletionEmail 发送多站点单完成通知
func (s *EmailService) SendMultiFeeCompletionEmail(ctx context.Context, input MultiFeeEmailInput) error {
	subject := fmt.Sprintf("%s - Thông báo nhận mẫu từ nhà xe - %s", s.brand(), input.OrderCode)
	body, err := renderEmail(multiFeeEmailTemplate, s.templateData(input.CompletionEmailInput, &input))
	if err != nil {
		return err
	}
	return s.sendHTML(ctx, input.ClinicEmail, subject, body)
}

func (s *EmailService) brand() string {
	if s.cfg != nil && strings.TrimSpace(s.cfg.Brand) != "" {
		return strings.TrimSpace(s.cfg.Brand)
	}
	return "Phacogen"
}

type emailTemplateData struct {
	Brand        string
	ClinicName   string
	OrderCode    string
	EmployeeName string
	CompletedAt  string
	Fees         *emailFeeData
}

type emailFeeData struct {
	Collection string
	Shipping   string
	Parking    string
	Total      string
	Photos     []string
}

func (s *EmailService) templateData(input CompletionEmailInput, fees *MultiFeeEmailInput) emailTemplateData {
	employee := strings.TrimSpace(input.EmployeeName)
	if employee == "" {
		employee = "N/A"
	}
	completedAt := input.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	data := emailTemplateData{
		Brand:        s.brand(),
		ClinicName:   input.ClinicName,
		OrderCode:    input.OrderCode,
		EmployeeName: employee,
		CompletedAt:  completedAt.In(s.loc).Format("15:04 02/01/2006"),
	}
	if fees != nil {
		data.Fees = &emailFeeData{
			Collection: fees.CollectionFee.String(),
			Shipping:   fees.ShippingFee.String(),
			Parking:    fees.ParkingFee.String(),
			Total:      fees.Total().String(),
			Photos:     fees.Photos,
		}
	}
	return data
}

func (s *EmailService) sendHTML(ctx context.Context, toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(toEmail)); err != nil {
		return ErrInvalidEmail
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	msg.SetHeader("To", strings.TrimSpace(toEmail))
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan error, 1)
	go func() {
		done <- s.send(msg)
	}()
	select {
	case err := <-done:
		return normalizeEmailSendError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EmailService) dialAndSend(msg *gomail.Message) error {
	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	dialer.SSL = s.cfg.UseSSL
	if !s.cfg.UseSSL {
		dialer.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	}
	return dialer.DialAndSend(msg)
}

func renderEmail(tpl *template.Template, data emailTemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return fmt.Errorf("%w: %v", ErrEmailRecipientRejected, err)
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	keywords := []string{
		"no such recipient",
		"no such user",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

var completionEmailTemplate = template.Must(template.New("completion").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1976d2;">{{.Brand}}</h2>
  <p><strong>{{.Brand}}</strong> xin thông báo nhân viên <strong>{{.EmployeeName}}</strong> đã nhận mẫu của phòng khám <strong>{{.ClinicName}}</strong>.</p>
  <p>Mã lệnh: <strong>{{.OrderCode}}</strong></p>
  <p>Thời gian hoàn thành: {{.CompletedAt}}</p>
</div>`))

var multiFeeEmailTemplate = template.Must(template.New("multi_fee").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1976d2;">{{.Brand}}</h2>
  <p><strong>{{.Brand}}</strong> xin thông báo nhân viên <strong>{{.EmployeeName}}</strong> đã nhận mẫu từ nhà xe cho phòng khám <strong>{{.ClinicName}}</strong>.</p>
  <p>Mã lệnh: <strong>{{.OrderCode}}</strong></p>
  <p>Thời gian hoàn thành: {{.CompletedAt}}</p>
  {{with .Fees}}<table>
    <tr><td>Cước nhận mẫu</td><td>{{.Collection}}</td></tr>
    <tr><td>Tiền ship</td><td>{{.Shipping}}</td></tr>
    <tr><td>Tiền gửi xe</td><td>{{.Parking}}</td></tr>
    <tr><td><strong>Tổng</strong></td><td><strong>{{.Total}}</strong></td></tr>
  </table>
  {{if .Photos}}<p>{{range $i, $url := .Photos}}<a href="{{$url}}">Ảnh {{inc $i}}</a> {{end}}</p>{{end}}{{end}}
</div>`))
