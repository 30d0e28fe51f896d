package sender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/wneessen/go-mail"
	"gopkg.in/yaml.v3"

	"github.com/lvanheel/teamdigest/internal/report"
)

// EmailConfig is the output.email block of a report definition.
type EmailConfig struct {
	SenderName  string   `yaml:"sender_name"`
	SenderEmail string   `yaml:"sender_email"`
	Recipients  []string `yaml:"recipients"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Scope       string   `yaml:"scope"`
}

// Email delivers a digest over SMTP with STARTTLS. Local relays are assumed
// pre-authorized, so authentication only happens against remote hosts.
type Email struct {
	cfg    EmailConfig
	dryRun bool
	diag   io.Writer
	logger *slog.Logger
}

func newEmailChannels(node yaml.Node, opts Options) ([]Channel, error) {
	var cfg EmailConfig
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("email channel config: %w", err)
	}
	if cfg.Host == "" || len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("email channel config: host and recipients are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Scope == "" {
		cfg.Scope = report.ScopeAll
	}
	e := &Email{cfg: cfg, dryRun: opts.DryRun, diag: opts.Diag, logger: opts.Logger}
	return []Channel{{Tag: "email", Scope: cfg.Scope, Format: report.FormatPlain, Sender: e}}, nil
}

func (e *Email) Name() string {
	return "email"
}

// localRelay reports whether the SMTP host is a loopback relay that needs
// no login.
func localRelay(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func (e *Email) Send(ctx context.Context, d *report.Digest) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(e.cfg.SenderName, e.cfg.SenderEmail); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", e.cfg.SenderEmail, err)
	}
	if err := msg.To(e.cfg.Recipients...); err != nil {
		return fmt.Errorf("invalid recipient list: %w", err)
	}
	msg.Subject(d.Subject)
	msg.SetBodyString(mail.TypeTextPlain, d.Body)

	if e.dryRun {
		e.logger.Info("dry run, writing message to diagnostic output", "host", e.cfg.Host)
		if _, err := msg.WriteTo(e.diag); err != nil {
			return fmt.Errorf("rendering message: %w", err)
		}
		return nil
	}

	clientOpts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if !localRelay(e.cfg.Host) {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password),
		)
	}

	client, err := mail.NewClient(e.cfg.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("initializing SMTP client for %s: %w", e.cfg.Host, err)
	}

	e.logger.Info("mailing report", "host", e.cfg.Host, "recipients", len(e.cfg.Recipients))
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending via %s (check credentials and that a local relay is configured when using localhost): %w", e.cfg.Host, err)
	}
	return nil
}
