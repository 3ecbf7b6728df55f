package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/conference-api/pkg/circuitbreaker"
)

type SMTP struct {
	Server   string
	Port     int
	User     string
	Password string
	From     string
	FromName string

	breaker *circuitbreaker.CircuitBreaker
}

func NewSMTP(server string, port int, user, password, from, fromName string) *SMTP {
	if from == "" {
		from = user
	}
	return &SMTP{
		Server:   server,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		FromName: fromName,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "smtp",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (s *SMTP) Send(ctx context.Context, address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := s.compose(address, subject, body)

	return s.breaker.Execute(func() error {
		return s.send(m)
	})
}

func (s *SMTP) compose(address, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.From, s.FromName)
	m.SetHeader("To", address)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return m
}

func (s *SMTP) send(m *gomail.Message) error {
	d := gomail.NewDialer(s.Server, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}

	return nil
}
