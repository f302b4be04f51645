package emailsvc

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/academia/core"
)

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := conf.FromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.sendMessage(msg)
	}
}

func (svc sendgridService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.Subject = svc.subjPrefix + msg.Subject

	p := sgmail.NewPersonalization()
	for _, addr := range msg.To {
		p.AddTos(sgmail.NewEmail(addr.Name, addr.Address))
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	client := sendgrid.NewSendClient(svc.key)
	resp, err := client.Send(m)
	if err != nil {
		svc.logger.Error("sending email", errors.Wrap(err, "sendgrid send"))
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		svc.logger.Error("sending email", errors.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body))
	}
}
