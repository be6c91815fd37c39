package mail

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/tutoring-orchestrator/pkg/config"
)

// fakeSMTP accepts SMTP conversations on a local port and records what it receives.
type fakeSMTP struct {
	ln         net.Listener
	rejectRcpt bool

	mu       sync.Mutex
	commands []string
	data     []string
}

func newFakeSMTP(t *testing.T, rejectRcpt bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &fakeSMTP{ln: ln, rejectRcpt: rejectRcpt}
	t.Cleanup(func() { _ = ln.Close() })
	go srv.serve()
	return srv
}

func (s *fakeSMTP) config() config.MailConfig {
	addr := s.ln.Addr().(*net.TCPAddr)
	return config.MailConfig{Host: addr.IP.String(), Port: addr.Port}
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			_, _ = conn.Write([]byte(l + "\r\n"))
		}
	}

	reply("220 fake.smtp ESMTP ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		verb := strings.ToUpper(strings.SplitN(cmd, " ", 2)[0])
		switch {
		case verb == "EHLO" || verb == "HELO":
			reply("250-fake.smtp", "250 HELP")
		case strings.HasPrefix(strings.ToUpper(cmd), "RCPT TO") && s.rejectRcpt:
			reply("550 5.1.1 mailbox unavailable")
		case verb == "DATA":
			reply("354 end data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(dl)
			}
			s.mu.Lock()
			s.data = append(s.data, body.String())
			s.mu.Unlock()
			reply("250 2.0.0 queued")
		case verb == "QUIT":
			reply("221 2.0.0 bye")
			return
		default:
			reply("250 2.0.0 ok")
		}
	}
}

func (s *fakeSMTP) received() ([]string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...), append([]string(nil), s.data...)
}

func hasCommand(commands []string, prefix string) bool {
	for _, c := range commands {
		if strings.HasPrefix(strings.ToUpper(c), strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}

func TestSMTPSenderDeliversMessage(t *testing.T) {
	srv := newFakeSMTP(t, false)
	sender := NewSMTPSender(srv.config())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := sender.Send(ctx, Message{
		From:    `"HW Peer Tutoring" <uspeertutoring@hw.com>`,
		To:      "student@hw.com",
		Subject: "Session Confirmation: Math",
		Text:    "Hello Ana,\nSee you soon.",
	})
	require.NoError(t, err)

	commands, data := srv.received()
	assert.True(t, hasCommand(commands, "MAIL FROM:<uspeertutoring@hw.com>"), commands)
	assert.True(t, hasCommand(commands, "RCPT TO:<student@hw.com>"), commands)
	require.Len(t, data, 1)
	assert.Contains(t, data[0], "Subject: Session Confirmation: Math\r\n")
	assert.Contains(t, data[0], "Hello Ana,")
}

func TestSMTPSenderEncodesNonASCIISubject(t *testing.T) {
	srv := newFakeSMTP(t, false)
	sender := NewSMTPSender(srv.config())

	require.NoError(t, sender.Send(context.Background(), Message{From: "a@hw.com", To: "b@hw.com", Subject: "Sesión", Text: "hola"}))
	_, data := srv.received()
	require.Len(t, data, 1)
	assert.Contains(t, data[0], "Subject: =?UTF-8?q?")
}

func TestSMTPSenderReportsRejectedRecipient(t *testing.T) {
	srv := newFakeSMTP(t, true)
	sender := NewSMTPSender(srv.config())

	err := sender.Send(context.Background(), Message{From: "a@hw.com", To: "nobody@hw.com", Subject: "hi", Text: "body"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody@hw.com")
	_, data := srv.received()
	assert.Empty(t, data)
}

func TestSMTPSenderRejectsInvalidAddress(t *testing.T) {
	sender := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, sender.Send(context.Background(), Message{From: "a@hw.com", To: "not an address"}))
}

func TestSMTPSenderUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	sender := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: port})
	err = sender.Send(context.Background(), Message{From: "a@hw.com", To: "b@hw.com", Subject: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send to b@hw.com")
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, `"HW Peer Tutoring" <uspeertutoring@hw.com>`, FormatAddress("HW Peer Tutoring", "uspeertutoring@hw.com"))
	assert.Equal(t, "a@hw.com", FormatAddress("", "a@hw.com"))
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	require.NoError(t, sender.Send(context.Background(), Message{From: "a@hw.com", To: "b@hw.com", Subject: "hi", Text: "body"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "b@hw.com", logs.All()[0].ContextMap()["to"])

	assert.Error(t, sender.Send(context.Background(), Message{From: "a@hw.com", To: "not an address"}))
}

func TestNewSenderSelectsTransport(t *testing.T) {
	_, isLog := NewSender(config.MailConfig{}, nil).(*LogSender)
	assert.True(t, isLog)
	_, isSMTP := NewSender(config.MailConfig{Host: "smtp.hw.com", Port: 587}, nil).(*SMTPSender)
	assert.True(t, isSMTP)
}
