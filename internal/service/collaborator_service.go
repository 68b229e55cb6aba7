package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"petshop-backend/internal/domain"
	"petshop-backend/internal/ports"
	"petshop-backend/internal/repository"
)

type inviteCooldown interface {
	Acquire(ctx context.Context, key string) (bool, time.Duration, error)
	Release(ctx context.Context, key string) error
}

type inviteMailer interface {
	SendInvite(to, link, shopName string) error
}

// CollaboratorService manages the staff accounts that share an admin's data.
type CollaboratorService struct {
	Users     ports.UserStore
	Settings  ports.SettingsStore
	Cooldown  inviteCooldown
	Mailer    inviteMailer
	Validate  *validator.Validate
	ClientURL string
	InviteTTL time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
}

type AcceptInviteInput struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,password"`
}

// Invite creates a pending collaborator and mails the acceptance link.
// Each address can be mailed once per cooldown window.
func (s CollaboratorService) Invite(ctx context.Context, adminID int64, in InviteInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := Validate(s.validator(), in); err != nil {
		return nil, err
	}

	existing, err := s.Users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.Role == domain.RoleCollaborator:
		return nil, fmt.Errorf("%w: this user is already a collaborator", ErrConflict)
	case err == nil:
		return nil, fmt.Errorf("%w: email already used by an active account", ErrConflict)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if s.Cooldown != nil {
		ok, wait, err := s.Cooldown.Acquire(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if !ok {
			return nil, &CooldownError{RetryAt: s.now().Add(wait)}
		}
	}

	token := uuid.NewString()
	expires := s.now().Add(s.inviteTTL())
	user, err := s.Users.Create(ctx, domain.User{
		Email:             in.Email,
		Role:              domain.RoleCollaborator,
		OwnerID:           &adminID,
		InviteToken:       &token,
		InviteExpiresAt:   &expires,
		PendingInvitation: true,
	})
	if err != nil {
		s.release(ctx, in.Email)
		if repository.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: email already used", ErrConflict)
		}
		return nil, err
	}

	shop := "PetCare"
	if st, err := s.Settings.Get(ctx, adminID); err == nil && st.BusinessName != "" {
		shop = st.BusinessName
	}
	if err := s.Mailer.SendInvite(in.Email, s.inviteLink(token, in.Email), shop); err != nil {
		s.Logger.Error("send invite", "admin", adminID, "to", in.Email, "err", err)
		if delErr := s.Users.Delete(ctx, user.ID); delErr != nil {
			s.Logger.Warn("roll back invite", "user", user.ID, "err", delErr)
		}
		s.release(ctx, in.Email)
		return nil, fmt.Errorf("%w: could not send invite email", ErrUpstream)
	}
	s.Logger.Info("collaborator invited", "admin", adminID, "user", user.ID)
	return user, nil
}

// Accept activates an invitation. Unknown, mismatched and expired tokens are
// all reported the same way.
func (s CollaboratorService) Accept(ctx context.Context, in AcceptInviteInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := Validate(s.validator(), in); err != nil {
		return nil, err
	}
	user, err := s.Users.GetByInviteToken(ctx, in.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !strings.EqualFold(user.Email, in.Email) {
		return nil, ErrInvalidToken
	}
	if user.InviteExpiresAt != nil && s.now().After(*user.InviteExpiresAt) {
		return nil, ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.Users.AcceptInvite(ctx, user.ID, in.Name, string(hash))
}

func (s CollaboratorService) List(ctx context.Context, adminID int64) ([]domain.User, error) {
	return s.Users.ListByOwner(ctx, adminID)
}

func (s CollaboratorService) Remove(ctx context.Context, adminID, userID int64) error {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if user.Role != domain.RoleCollaborator || user.OwnerID == nil || *user.OwnerID != adminID {
		return ErrNotFound
	}
	if err := s.Users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s CollaboratorService) inviteLink(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return strings.TrimRight(s.ClientURL, "/") + "/accept-invite?" + q.Encode()
}

func (s CollaboratorService) release(ctx context.Context, email string) {
	if s.Cooldown == nil {
		return
	}
	if err := s.Cooldown.Release(ctx, email); err != nil {
		s.Logger.Warn("release cooldown", "email", email, "err", err)
	}
}

func (s CollaboratorService) inviteTTL() time.Duration {
	if s.InviteTTL > 0 {
		return s.InviteTTL
	}
	return 7 * 24 * time.Hour
}

func (s CollaboratorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s CollaboratorService) validator() *validator.Validate {
	if s.Validate != nil {
		return s.Validate
	}
	return NewValidator()
}
