// Package mailer sends outbound email: recovery codes and prescription
// documents with PDF attachments.
package mailer

import (
	"fmt"
	"io"

	"github.com/go-gomail/gomail"
)

// Mailer sends email through a configured SMTP relay.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// New creates a Mailer. The sender address defaults to the SMTP user.
func New(host string, port int, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: user}
}

// SendRecoveryCode emails a password recovery code to a user.
func (m *Mailer) SendRecoveryCode(to, fullName, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password recovery code")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour password recovery code is: %s\n\nThe code expires in 10 minutes. If you did not request it, ignore this message.\n",
		fullName, code,
	))

	return m.send(msg)
}

// SendPrescription emails a prescription PDF to a patient.
func (m *Mailer) SendPrescription(to, patientName, number string, pdfData []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your prescription "+number)
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour prescription %s is attached as a PDF document.\n",
		patientName, number,
	))

	msg.Attach(number+".pdf", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdfData)
		return err
	}))

	return m.send(msg)
}

func (m *Mailer) send(msg *gomail.Message) error {
	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
