package emailsvc

import (
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/kozi/core"
)

type sendgridService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	client           *sendgrid.Client
	logger           core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		defaultFromEmail: conf.DefaultFromEmailAddr(),
		subjPrefix:       "[" + conf.AppName + "] ",
		client:           sendgrid.NewSendClient(conf.SendgridApiKey),
		logger:           logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc sendgridService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", err)
		return
	}
	if msg.HasRecipients() && msg.HasContent() {
		if err := svc.send(*msg); err != nil {
			svc.logger.Error("sending email", err)
		}
	}
}

func (svc sendgridService) send(msg core.EmailMessage) error {
	sgMsg := sgmail.NewV3Mail()
	sgMsg.SetFrom(sgmail.NewEmail(svc.defaultFromEmail.Name, svc.defaultFromEmail.Address))
	sgMsg.Subject = svc.subjPrefix + msg.Subject

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgmail.NewEmail(cc.Name, cc.Address))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgmail.NewEmail(bcc.Name, bcc.Address))
	}
	sgMsg.AddPersonalizations(p)

	if msg.TextContent != "" {
		sgMsg.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		sgMsg.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	resp, err := svc.client.Send(sgMsg)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if resp.StatusCode != http.StatusAccepted {
		return errors.Errorf("sending email: [%d] %s", resp.StatusCode, resp.Body)
	}
	return nil
}
