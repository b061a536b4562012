package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/notification"
	"github.com/skip2/go-qrcode"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// qrFile is the inline attachment name; go-mail uses it as the Content-ID.
const qrFile = "ticket-qr.png"

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Sender turns notification events into receipt e-mails. With no SMTP host
// configured it only logs what it would have sent.
type Sender struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

func NewSender(cfg config.SMTPConfig, logger *zap.Logger) *Sender {
	s := &Sender{cfg: cfg, logger: logger}
	s.send = s.deliver
	return s
}

func (s *Sender) Send(ctx context.Context, event notification.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Email == "" {
		return fmt.Errorf("event %s for reservation %d has no recipient", event.Type, event.ReservationID)
	}

	msg, err := s.compose(event)
	if err != nil {
		return err
	}

	if s.cfg.Host == "" {
		s.logger.Info("smtp disabled, receipt not sent",
			zap.String("to", event.Email),
			zap.String("type", string(event.Type)),
			zap.Int64("reservation_id", event.ReservationID))
		return nil
	}

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send receipt for reservation %d: %w", event.ReservationID, err)
	}
	s.logger.Info("receipt sent", zap.String("to", event.Email), zap.Int64("reservation_id", event.ReservationID))
	return nil
}

func (s *Sender) deliver(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func subject(event notification.Event) string {
	if event.Type == notification.EventReservationCancelled {
		return fmt.Sprintf("Booking #%d cancelled", event.ReservationID)
	}
	return fmt.Sprintf("Booking #%d confirmed", event.ReservationID)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html><body>
<h2>{{.Title}}</h2>
<p>Booking <b>#{{.Event.ReservationID}}</b> on {{.Event.JourneyDate}}</p>
<p>{{.Event.FromStop}} &rarr; {{.Event.ToStop}}</p>
<p>Seats: {{range $i, $s := .Event.Seats}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
{{if .Event.PassengerNames}}<p>Passengers: {{range $i, $n := .Event.PassengerNames}}{{if $i}}, {{end}}{{$n}}{{end}}</p>{{end}}
<p>Total: &#8377;{{.Event.TotalAmount}}</p>
{{if .WithQR}}<p><img src="{{.QR}}" alt="ticket"/></p>{{end}}
</body></html>`))

// ticketPayload is what the QR code on a confirmed receipt encodes.
func ticketPayload(event notification.Event) string {
	return fmt.Sprintf("BOOKING:%d|%s|%s-%s|%s",
		event.ReservationID, event.JourneyDate, event.FromStop, event.ToStop, strings.Join(event.Seats, ","))
}

func (s *Sender) compose(event notification.Event) (*mail.Msg, error) {
	confirmed := event.Type == notification.EventReservationConfirmed

	var html bytes.Buffer
	if err := receiptTemplate.Execute(&html, struct {
		Title  string
		Event  notification.Event
		QR     template.URL
		WithQR bool
	}{Title: subject(event), Event: event, QR: template.URL("cid:" + qrFile), WithQR: confirmed}); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := msg.To(event.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", event.Email, err)
	}
	msg.Subject(subject(event))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, html.String())

	if confirmed {
		png, err := qrcode.Encode(ticketPayload(event), qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode ticket qr: %w", err)
		}
		if err := msg.EmbedReader(qrFile, bytes.NewReader(png)); err != nil {
			return nil, fmt.Errorf("embed ticket qr: %w", err)
		}
	}
	return msg, nil
}
