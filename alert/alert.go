// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends mail notifications about failed acquisition runs.
//
// Mail credentials are read from the environment:
//   - MAIL_USERNAME, MAIL_PASSWORD: account used to send mails,
//   - MAIL_SERVER, MAIL_PORT: SMTP server,
//   - MAIL_TGTS: comma separated list of recipients.
package alert // import "github.com/go-lpc/vibdaq/alert"

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	mail "gopkg.in/gomail.v2"
)

// ErrNoCredentials is returned when the mail credentials are incomplete.
var ErrNoCredentials = errors.New("alert: missing mail credentials")

// Mailer sends alert mails through an SMTP server.
type Mailer struct {
	User     string
	Password string
	Server   string
	Port     int
	To       []string

	// Insecure disables the verification of the server certificate.
	Insecure bool
}

// LoadEnv loads the variables of the named .env file into the environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnv(fname string) error {
	if fname == "" {
		return nil
	}
	err := godotenv.Load(fname)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("alert: could not load env file %q: %w", fname, err)
	}
	return nil
}

// FromEnv returns a mailer configured from the environment.
func FromEnv() (*Mailer, error) {
	m := &Mailer{
		User:     os.Getenv("MAIL_USERNAME"),
		Password: os.Getenv("MAIL_PASSWORD"),
		Server:   os.Getenv("MAIL_SERVER"),
		To:       splitTargets(os.Getenv("MAIL_TGTS")),
		Insecure: true,
	}
	if v := os.Getenv("MAIL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("alert: invalid MAIL_PORT %q: %w", v, err)
		}
		m.Port = port
	}

	if m.User == "" || m.Password == "" ||
		m.Server == "" || m.Port == 0 ||
		len(m.To) == 0 {
		return nil, ErrNoCredentials
	}
	return m, nil
}

func splitTargets(v string) []string {
	var tgts []string
	for _, tgt := range strings.Split(v, ",") {
		tgt = strings.TrimSpace(tgt)
		if tgt == "" {
			continue
		}
		tgts = append(tgts, tgt)
	}
	return tgts
}

var dialAndSend = func(dial *mail.Dialer, msgs ...*mail.Message) error {
	return dial.DialAndSend(msgs...)
}

// Send mails the provided subject and body to all the recipients.
func (m *Mailer) Send(subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.User)
	msg.SetHeader("Bcc", m.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dial := mail.NewDialer(m.Server, m.Port, m.User, m.Password)
	if m.Insecure {
		dial.TLSConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	err := dialAndSend(dial, msg)
	if err != nil {
		return fmt.Errorf("alert: could not send mail: %w", err)
	}
	return nil
}

// Failure mails a report about a failed run.
func (m *Mailer) Failure(cmd, stamp string, cause error, files ...string) error {
	var o strings.Builder
	fmt.Fprintf(&o, "run:   %s\n", stamp)
	fmt.Fprintf(&o, "error: %v\n", cause)
	for _, fname := range files {
		if fname == "" {
			continue
		}
		fmt.Fprintf(&o, "file:  %s\n", fname)
	}
	return m.Send(fmt.Sprintf("[%s] run %s failed", cmd, stamp), o.String())
}
