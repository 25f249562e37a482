package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrSignupNotSupported indicates that signup is not supported.
var ErrSignupNotSupported = errors.New("signup not supported")

const minPhoneLength = 10

func (s *Session) authFlow() auth.Flow {
	return auth.NewFlow(s, auth.SendCodeOptions{})
}

func (s *Session) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	code, err := s.prompt("Enter code: ")
	if err != nil {
		return "", fmt.Errorf("failed to read auth code: %w", err)
	}

	return code, nil
}

func (s *Session) Phone(_ context.Context) (string, error) {
	phone := s.cfg.TGPhone

	if phone == "" {
		var err error

		phone, err = s.prompt("Enter phone: ")
		if err != nil {
			return "", fmt.Errorf("failed to read phone number: %w", err)
		}
	}

	phone = sanitizePhone(phone)
	s.logger.Info().Str("phone", maskPhone(phone)).Msg("Using phone number")

	if len(phone) < minPhoneLength {
		s.logger.Warn().Int("length", len(phone)).Msg("Phone number seems too short, it might be invalid. Ensure it includes country code (e.g. +1...)")
	}

	return phone, nil
}

func (s *Session) Password(_ context.Context) (string, error) {
	if s.cfg.TG2FAPassword != "" {
		return s.cfg.TG2FAPassword, nil
	}

	password, err := s.prompt("Enter 2FA password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read 2FA password: %w", err)
	}

	return password, nil
}

func (s *Session) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (s *Session) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}

func (s *Session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)

	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func sanitizePhone(phone string) string {
	var sb strings.Builder

	phone = strings.TrimSpace(phone)

	if strings.HasPrefix(phone, "+") {
		sb.WriteByte('+')

		phone = phone[1:]
	}

	for _, char := range phone {
		if char >= '0' && char <= '9' {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

func maskPhone(phone string) string {
	if len(phone) < 7 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-2:]
}
