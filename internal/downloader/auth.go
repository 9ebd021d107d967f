package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrSignupNotSupported indicates that signup is not supported.
var ErrSignupNotSupported = errors.New("signup not supported")

func (d *Downloader) authFlow() auth.Flow {
	return auth.NewFlow(d, auth.SendCodeOptions{})
}

func (d *Downloader) Phone(ctx context.Context) (string, error) {
	phone := sanitizePhone(d.cfg.TGPhone)
	d.logger.Info().Str("phone", maskPhone(phone)).Msg("using phone number")

	return phone, nil
}

func (d *Downloader) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	fmt.Printf("A verification code has been sent to %s\n", maskPhone(sanitizePhone(d.cfg.TGPhone)))
	fmt.Print("Enter the verification code: ")

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(code), nil
}

func (d *Downloader) Password(ctx context.Context) (string, error) {
	if d.cfg.TG2FAPassword != "" {
		return d.cfg.TG2FAPassword, nil
	}

	fmt.Print("Enter your two-step verification password: ")

	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(password), nil
}

func (d *Downloader) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return nil
}

func (d *Downloader) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrSignupNotSupported
}

// sanitizePhone strips everything except digits and a leading plus.
func sanitizePhone(phone string) string {
	var b strings.Builder

	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' && b.Len() == 0 {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// maskPhone hides all but the last four digits.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}

	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
