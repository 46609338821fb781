package email

import (
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendPaymentReceipt sends the "order paid" confirmation to the buyer.
func (s *Service) SendPaymentReceipt(toName, toAddr string, receipt PaymentReceipt) error {
	body, err := BuildPaymentReceiptBody(receipt)
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	to := (&mail.Address{Name: toName, Address: toAddr}).String()
	return s.send(toAddr, to, "New order "+receipt.OrderID, body)
}

func (s *Service) send(rcpt, toHeader, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, toHeader, mime.QEncoding.Encode("utf-8", subject), body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{rcpt}, []byte(msg))
}
