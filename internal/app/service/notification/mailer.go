package notification

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	gomail "github.com/wneessen/go-mail"

	"github.com/crownline/pageant/pkg/config"
	"github.com/crownline/pageant/pkg/logctx"
)

// Notifier delivers best-effort user notifications. Implementations must be
// fire-and-forget: a delivery failure is logged and never propagated, so a
// failed email can never roll back a purchase transition.
type Notifier interface {
	NotifyVoteConfirmed(ctx context.Context, email string, contestantName string, voteCount int)
}

type mailer struct {
	cfg *config.MailConfig
	log *zap.SugaredLogger
}

func NewNotifier(cfg *config.Config, log *zap.SugaredLogger) Notifier {
	if cfg.Mail.Host == "" {
		log.Infow("mail not configured, vote confirmations disabled")
		return &noopNotifier{}
	}
	return &mailer{cfg: &cfg.Mail, log: log}
}

func (m *mailer) NotifyVoteConfirmed(ctx context.Context, email string, contestantName string, voteCount int) {
	go func() {
		msg := gomail.NewMsg()
		if err := msg.From(m.cfg.From); err != nil {
			m.log.Errorw("mail: invalid from address", "err", err)
			return
		}
		if err := msg.To(email); err != nil {
			m.log.Errorw("mail: invalid recipient", "err", err)
			return
		}
		msg.Subject("Your votes are in!")
		msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
			"Your payment was received and %d vote(s) for %s have been counted. Thank you for voting!",
			voteCount, contestantName,
		))

		client, err := gomail.NewClient(m.cfg.Host,
			gomail.WithPort(m.cfg.Port),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
		if err != nil {
			logctx.FromCtx(ctx, m.log).Errorw("mail: client init failed", "err", err)
			return
		}
		if err := client.DialAndSend(msg); err != nil {
			logctx.FromCtx(ctx, m.log).Errorw("mail: send failed", "to", email, "err", err)
		}
	}()
}

type noopNotifier struct{}

func (noopNotifier) NotifyVoteConfirmed(context.Context, string, string, int) {}

var Module = fx.Options(
	fx.Provide(NewNotifier),
)
