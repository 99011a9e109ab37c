package notification

import (
	"AddrSpectra/internal/config"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestEmailNotifier_Send(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	n := NewEmailNotifier(config.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "spectra@example.com",
		To:   "ops@example.com, ,noc@example.com",
	}).(*EmailNotifier)
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	if err := n.Send("Alert", "<p>hi</p>"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("Unexpected server address %q", gotAddr)
	}
	if len(gotTo) != 2 || gotTo[1] != "noc@example.com" {
		t.Errorf("Unexpected recipients %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Alert\r\n") || !strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>") {
		t.Errorf("Unexpected message:\n%s", msg)
	}
	if !strings.Contains(msg, "Content-Type: text/html") {
		t.Error("Message should be HTML")
	}
}

func TestEmailNotifier_SendErrors(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25, To: "a@b.c"}).(*EmailNotifier)
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	if err := n.Send("s", "b"); err == nil || !strings.Contains(err.Error(), "refused") {
		t.Errorf("Expected wrapped send error, got %v", err)
	}

	empty := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25}).(*EmailNotifier)
	if err := empty.Send("s", "b"); err == nil {
		t.Error("Expected error without recipients")
	}
}
