package emailsvc

import (
	"log"
	"net/mail"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

// consoleService prints messages instead of sending them.
type consoleService struct {
	tmpls         *core.EmailTemplates
	from          mail.Address
	subjPrefix    string
	std           *log.Logger
	disableOutput bool

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, tmpls *core.EmailTemplates, std *log.Logger) *consoleService {
	return &consoleService{
		tmpls:      tmpls,
		from:       conf.DefaultFrom(),
		subjPrefix: "[" + conf.AppName + "] ",
		std:        std,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc *consoleService) Send(msg *core.EmailMessage) error {
	return svc.sendOne(msg)
}

func (svc *consoleService) sendMessage(msg *core.EmailMessage) {
	if err := svc.sendOne(msg); err != nil {
		svc.std.Printf("%+v", err)
	}
}

func (svc *consoleService) sendOne(msg *core.EmailMessage) error {
	ok, err := prepare(svc.tmpls, msg)
	if err != nil || !ok {
		return err
	}
	data, err := buildMIME(senderOf(*msg, svc.from), svc.subjPrefix+msg.Subject, *msg)
	if err != nil {
		return errors.Wrap(err, "building message")
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
	if !svc.disableOutput {
		svc.std.Println(string(data))
	}
	return nil
}

// SentMessages returns the messages sent so far.
func (svc *consoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage{}, svc.sent...)
}

type ConsoleServiceMock struct {
	*consoleService
}

// NewConsoleServiceMock returns a silent console service sending synchronously.
func NewConsoleServiceMock(conf *core.Config, tmpls *core.EmailTemplates) *ConsoleServiceMock {
	svc := NewConsoleService(conf, tmpls, log.Default())
	svc.disableOutput = true
	return &ConsoleServiceMock{consoleService: svc}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
