package tui

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
)

// Credentials collects the login form's answers.
type Credentials struct {
	Email    string
	Password string
	Remember bool
}

// LoginForm prompts for whatever fields of c are still empty, plus the
// remember-me choice. Prefilled values are kept.
func LoginForm(c *Credentials) error {
	var fields []huh.Field
	if c.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@school.edu").
			Value(&c.Email).
			Validate(ValidateEmail))
	}
	if c.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(required))
	}
	fields = append(fields, huh.NewConfirm().
		Title("Remember me on this device?").
		Description("Otherwise you are signed out when the session ends.").
		Affirmative("Yes").
		Negative("No").
		Value(&c.Remember))

	form := huh.NewForm(huh.NewGroup(fields...).Title("Sign in to StudySync")).
		WithTheme(formTheme())
	if err := form.Run(); err != nil {
		return err
	}
	c.Email = strings.TrimSpace(c.Email)
	return nil
}

// PasswordChangeForm prompts for the current password and a new one,
// entered twice.
func PasswordChangeForm() (current, next string, err error) {
	var confirm string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Current password").
			EchoMode(huh.EchoModePassword).
			Value(&current).
			Validate(required),
		huh.NewInput().
			Title("New password").
			EchoMode(huh.EchoModePassword).
			Value(&next).
			Validate(ValidatePassword),
		huh.NewInput().
			Title("Repeat new password").
			EchoMode(huh.EchoModePassword).
			Value(&confirm).
			Validate(func(s string) error {
				if s != next {
					return errors.New("passwords do not match")
				}
				return nil
			}),
	).Title("Change password")).WithTheme(formTheme())
	if err := form.Run(); err != nil {
		return "", "", err
	}
	return current, next, nil
}

// MinPasswordLength matches the backend's registration rule.
const MinPasswordLength = 6

// ValidatePassword checks a new password's length.
func ValidatePassword(s string) error {
	if len(s) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateEmail accepts a bare address.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("enter a valid email address")
	}
	return nil
}

func required(s string) error {
	if s == "" {
		return errors.New("this field is required")
	}
	return nil
}

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return defaultValue, err
	}
	return result, nil
}

// ConfirmDangerous shows a confirmation prompt for destructive actions.
func ConfirmDangerous(message string) (bool, error) {
	var result bool
	err := huh.NewConfirm().
		Title(message).
		Description("This action cannot be undone.").
		Affirmative("Yes, I'm sure").
		Negative("Cancel").
		Value(&result).
		Run()
	if err != nil {
		return false, err
	}
	return result, nil
}

// SelectOption represents an option in a select prompt.
type SelectOption struct {
	Value string
	Label string
}

// Select shows a single-select prompt.
func Select(title string, options []SelectOption) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value)
	}

	var result string
	err := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&result).
		Run()
	return result, err
}
